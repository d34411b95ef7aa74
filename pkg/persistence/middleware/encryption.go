package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/value"
)

// EncryptedKey is the only output key of an encrypted record as stored.
const EncryptedKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt a record.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.Journal
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals record outputs with AES-GCM.
// The rest of the record stays readable to the underlying journal.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.Journal) ports.Journal {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	if record.Outputs == nil {
		return m.next.Save(ctx, record)
	}
	plainText, err := record.Outputs.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt outputs: %w", err)
	}

	envelope := *record
	envelope.Outputs = value.NewMapFrom(EncryptedKey, value.Bytes(ciphertext))
	return m.next.Save(ctx, &envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.ExecutionRecord, error) {
	envelope, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if envelope.Outputs == nil {
		return envelope, nil
	}

	sealed, ok := envelope.Outputs.Get(EncryptedKey)
	ciphertext, isBytes := sealed.(value.Bytes)
	if !ok || !isBytes || envelope.Outputs.Len() != 1 {
		return nil, errors.New("record is missing encrypted outputs envelope")
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt record %s: %w", id, err)
	}
	outputs := value.NewMap()
	if err := outputs.UnmarshalCBOR(plainText); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted outputs: %w", err)
	}

	record := *envelope
	record.Outputs = outputs
	return &record, nil
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
