package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/adapters/redis"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/ports"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisJournal_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunJournalContract(t, redis.NewFromClient(client))
}

func TestRedisJournal_TTL(t *testing.T) {
	mr, client := setup(t)
	journal := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, journal.Save(ctx, domain.NewExecutionRecord("exec-1", time.Now())))
	assert.True(t, mr.Exists("test:execution:exec-1"))
	assert.Equal(t, time.Minute, mr.TTL("test:execution:exec-1"))

	mr.FastForward(2 * time.Minute)
	_, err := journal.Load(ctx, "exec-1")
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}
