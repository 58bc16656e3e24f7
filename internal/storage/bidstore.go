package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/example/scrap-bidding/internal/models"
)

// BidStore keeps the bids a collector has submitted through this service until the
// upstream API confirms them.
type BidStore interface {
	SaveBid(ctx context.Context, collectorID string, b models.Bid) error
	ListBids(ctx context.Context, collectorID string) ([]models.Bid, error)
	DeleteBids(ctx context.Context, collectorID string, ids []string) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	bids map[string]map[string]models.Bid // collector -> bid id -> bid
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bids: make(map[string]map[string]models.Bid)}
}

func (m *MemoryStore) SaveBid(_ context.Context, collectorID string, b models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.bids[collectorID]
	if !ok {
		byID = make(map[string]models.Bid)
		m.bids[collectorID] = byID
	}
	byID[b.ID] = b
	return nil
}

// ListBids returns the collector's bids oldest first.
func (m *MemoryStore) ListBids(_ context.Context, collectorID string) ([]models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Bid, 0, len(m.bids[collectorID]))
	for _, b := range m.bids[collectorID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) DeleteBids(_ context.Context, collectorID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.bids[collectorID]
	for _, id := range ids {
		delete(byID, id)
	}
	if len(byID) == 0 {
		delete(m.bids, collectorID)
	}
	return nil
}
