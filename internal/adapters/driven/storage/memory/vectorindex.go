package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory driven.VectorIndex. Queries are exact
// brute-force scans.
type VectorIndex struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
	order   []string
}

// NewVectorIndex creates an empty in-memory index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		records: make(map[string]driven.VectorRecord),
	}
}

// Upsert stores the batch under a single lock.
func (v *VectorIndex) Upsert(_ context.Context, records []driven.VectorRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range records {
		if _, exists := v.records[r.ID]; !exists {
			v.order = append(v.order, r.ID)
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		v.records[r.ID] = driven.VectorRecord{
			ID:       r.ID,
			Vector:   vec,
			Text:     r.Text,
			Metadata: storage.CopyMetadata(r.Metadata),
		}
	}
	return nil
}

// Query scans every record matching filter.
func (v *VectorIndex) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(v.order))
	for _, id := range v.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := v.records[id]
		if !storage.MatchesFilter(r.Metadata, filter) {
			continue
		}
		d, err := storage.CosineDistance(vector, r.Vector)
		if err != nil {
			return nil, err
		}
		hits = append(hits, driven.VectorHit{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: storage.CopyMetadata(r.Metadata),
			Distance: d,
		})
	}
	return storage.TopK(hits, k), nil
}

// Delete removes ids. Unknown ids are ignored.
func (v *VectorIndex) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := v.records[id]; ok {
			delete(v.records, id)
			gone[id] = struct{}{}
		}
	}
	if len(gone) == 0 {
		return nil
	}
	kept := v.order[:0]
	for _, id := range v.order {
		if _, ok := gone[id]; !ok {
			kept = append(kept, id)
		}
	}
	v.order = kept
	return nil
}

// IDsWhere returns ids whose metadata key equals value, in insertion order.
func (v *VectorIndex) IDsWhere(_ context.Context, key, value string) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var ids []string
	filter := map[string]string{key: value}
	for _, id := range v.order {
		if storage.MatchesFilter(v.records[id].Metadata, filter) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Count returns the number of stored records.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records), nil
}

// Peek returns up to limit records in insertion order, without vectors.
func (v *VectorIndex) Peek(_ context.Context, limit int) ([]driven.VectorRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	n := len(v.order)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]driven.VectorRecord, 0, n)
	for _, id := range v.order[:n] {
		r := v.records[id]
		out = append(out, driven.VectorRecord{ID: r.ID, Text: r.Text, Metadata: storage.CopyMetadata(r.Metadata)})
	}
	return out, nil
}

// Close drops every record.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = make(map[string]driven.VectorRecord)
	v.order = nil
	return nil
}
