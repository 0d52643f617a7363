// Package pool defines the consumable value pool: pre-generated values
// (voucher codes, activation keys) claimed at most once per successful
// delivery and handed back when a delivery fails.
package pool

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// Store claims and finalizes pool values.
//
// Claim must be an atomic compare-and-set on the unused flag: concurrent
// claims for the same (code, key) never receive the same record.
// Release marks records used (delivery succeeded) or unused (rolled back).
type Store interface {
	Claim(ctx context.Context, code, key string) (domain.ConsumableValue, bool, error)
	Release(ctx context.Context, ids []string, used bool) error
}

// MemoryStore is an in-process Store guarded by a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	records []*domain.ConsumableValue
	nextID  int
}

// NewMemoryStore creates an empty in-memory pool.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add inserts an unused value and returns its id.
func (s *MemoryStore) Add(code, key, value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.records = append(s.records, &domain.ConsumableValue{
		ID:        id,
		Code:      code,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	return id
}

// Claim flips the first unused (code, key) record to used.
func (s *MemoryStore) Claim(_ context.Context, code, key string) (domain.ConsumableValue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.Code == code && rec.Key == key && !rec.IsUsed {
			rec.IsUsed = true
			rec.UpdatedAt = time.Now().UTC()
			return *rec, true, nil
		}
	}
	return domain.ConsumableValue{}, false, nil
}

// Release sets the used flag on every listed record. Unknown ids are ignored.
func (s *MemoryStore) Release(_ context.Context, ids []string, used bool) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if want[rec.ID] {
			rec.IsUsed = used
			rec.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

// Get returns a copy of the record with the given id.
func (s *MemoryStore) Get(id string) (domain.ConsumableValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return *rec, true
		}
	}
	return domain.ConsumableValue{}, false
}
