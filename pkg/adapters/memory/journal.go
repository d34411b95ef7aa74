package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flowchain/pkg/domain"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	data map[string]*domain.ExecutionRecord
	mu   sync.RWMutex
}

// NewJournal creates a new in-memory journal.
func NewJournal() *Journal {
	return &Journal{
		data: make(map[string]*domain.ExecutionRecord),
	}
}

// Save stores a copy of the record.
func (j *Journal) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	copied := copyRecord(record)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.data[record.ID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (j *Journal) Load(ctx context.Context, id string) (*domain.ExecutionRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	record, ok := j.data[id]
	if !ok {
		return nil, domain.ErrExecutionNotFound
	}
	return copyRecord(record), nil
}

// List returns the stored execution IDs in lexical order.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	ids := make([]string, 0, len(j.data))
	for id := range j.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyRecord(r *domain.ExecutionRecord) *domain.ExecutionRecord {
	cp := *r
	if r.Outputs != nil {
		cp.Outputs = r.Outputs.Clone()
	}
	return &cp
}
