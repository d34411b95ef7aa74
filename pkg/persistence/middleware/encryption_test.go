package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/adapters/memory"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/persistence/middleware"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/value"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunJournalContract(t, mw(memory.NewJournal()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewJournal()
	journal := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	record := domain.NewExecutionRecord("exec-1", time.Now())
	record.Outputs = value.NewMapFrom("secret", value.String("my-secret-sauce"))
	require.NoError(t, journal.Save(ctx, record))

	stored, err := underlying.Load(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{middleware.EncryptedKey}, stored.Outputs.Keys())
	assert.Equal(t, domain.StateAssembling, stored.State, "state stays readable")

	loaded, err := journal.Load(ctx, "exec-1")
	require.NoError(t, err)
	secret, _ := loaded.Outputs.Get("secret")
	assert.Equal(t, value.String("my-secret-sauce"), secret)

	// The caller's record is not replaced by the envelope.
	assert.Equal(t, []string{"secret"}, record.Outputs.Keys())
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewJournal()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldJournal := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	record := domain.NewExecutionRecord("rotation", time.Now())
	record.Outputs = value.NewMapFrom("data", value.String("old"))
	require.NoError(t, oldJournal.Save(ctx, record))

	newJournal := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)
	loaded, err := newJournal.Load(ctx, "rotation")
	require.NoError(t, err)
	data, _ := loaded.Outputs.Get("data")
	assert.Equal(t, value.String("old"), data)

	loaded.Outputs.Set("data", value.String("new"))
	require.NoError(t, newJournal.Save(ctx, loaded))

	_, err = oldJournal.Load(ctx, "rotation")
	assert.Error(t, err, "old key alone cannot read records sealed with the new one")
}

func TestEncryptionMiddleware_PlainRecordRejected(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewJournal()
	record := domain.NewExecutionRecord("plain", time.Now())
	record.Outputs = value.NewMapFrom("a", value.U64(1))
	require.NoError(t, underlying.Save(ctx, record))

	journal := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := journal.Load(ctx, "plain")
	assert.ErrorContains(t, err, "envelope")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
