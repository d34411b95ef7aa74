package ports

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/value"
)

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	id := "contract-test-" + time.Now().Format("20060102150405.000000")
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("Save and Load", func(t *testing.T) {
		record := domain.NewExecutionRecord(id, now)
		record.State = domain.StateConfirmed
		record.FeePayer = solana.SystemProgramID.String()
		record.Signature = solana.Signature{9}.String()
		record.Outputs = value.NewMapFrom(
			"amount", value.U64(18446744073709551615),
			"owner", value.B32{1, 2, 3},
		)

		require.NoError(t, journal.Save(ctx, record), "Save should not return error")

		loaded, err := journal.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, record.State, loaded.State)
		assert.Equal(t, record.FeePayer, loaded.FeePayer)
		assert.Equal(t, record.Signature, loaded.Signature)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
		assert.Equal(t, []string{"amount", "owner"}, loaded.Outputs.Keys())
		assert.True(t, value.Equal(record.Outputs, loaded.Outputs), "outputs must survive exactly")
	})

	t.Run("Save replaces", func(t *testing.T) {
		record := domain.NewExecutionRecord(id, now)
		record.State = domain.StateFailed
		record.Error = "boom"
		require.NoError(t, journal.Save(ctx, record))

		loaded, err := journal.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StateFailed, loaded.State)
		assert.Equal(t, "boom", loaded.Error)
		assert.Nil(t, loaded.Outputs)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := journal.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := id + "-other"
		require.NoError(t, journal.Save(ctx, domain.NewExecutionRecord(other, now)))

		ids, err := journal.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
		assert.Contains(t, ids, other)
	})
}
