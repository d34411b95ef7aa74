package ports

import (
	"context"

	"github.com/aretw0/flowchain/pkg/domain"
)

// Journal persists execution records so their outcome can be queried after the fact.
type Journal interface {
	// Save stores the record, replacing any previous version with the same ID.
	Save(ctx context.Context, record *domain.ExecutionRecord) error

	// Load retrieves a record by execution ID.
	// Returns domain.ErrExecutionNotFound if there is none.
	Load(ctx context.Context, id string) (*domain.ExecutionRecord, error)

	// List returns the IDs of the stored records.
	List(ctx context.Context) ([]string, error)
}
