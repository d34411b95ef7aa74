package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/flowchain/pkg/domain"
)

// DefaultPrefix namespaces every key the adapters write.
const DefaultPrefix = "flowchain:"

var (
	recordEnc cbor.EncMode
	recordDec cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	var err error
	if recordEnc, err = encOpts.EncMode(); err != nil {
		panic(err)
	}
	if recordDec, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Journal implements ports.Journal using Redis. Records are stored CBOR encoded, with a
// sorted set indexing them by expiry.
type Journal struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Journal.
type Option func(*Journal)

// WithTTL sets the expiration for records.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// WithPrefix sets the key prefix for records.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// New creates a new Redis journal connected to address.
func New(address, password string, db int, opts ...Option) *Journal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis journal from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) key(id string) string {
	return j.prefix + "execution:" + id
}

func (j *Journal) indexKey() string {
	return j.prefix + "execution:index"
}

// Save persists the record.
func (j *Journal) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	data, err := recordEnc.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.Set(ctx, j.key(record.ID), data, j.ttl)

	// Score is the expiry time; records without TTL sort last and are never pruned.
	score := float64(time.Now().Add(j.ttl).Unix())
	if j.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, j.indexKey(), backend.Z{Score: score, Member: record.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save execution record: %w", err)
	}
	return nil
}

// Load retrieves a record.
func (j *Journal) Load(ctx context.Context, id string) (*domain.ExecutionRecord, error) {
	data, err := j.client.Get(ctx, j.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to load execution record: %w", err)
	}

	var record domain.ExecutionRecord
	if err := recordDec.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode execution record: %w", err)
	}
	return &record, nil
}

// List prunes expired entries from the index and returns the remaining IDs.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := j.client.ZRemRangeByScore(ctx, j.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired executions: %w", err)
	}

	ids, err := j.client.ZRange(ctx, j.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (j *Journal) Close() error {
	return j.client.Close()
}
