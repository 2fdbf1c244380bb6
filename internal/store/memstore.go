package store

import (
	"context"
	"sort"
	"sync"

	"lostfound/internal/models"
)

// Memory is an in-memory ItemStore for tests and ephemeral runs.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*models.Item
	order []string // insertion order, used as a created_at tiebreaker
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*models.Item)}
}

func (m *Memory) InsertItem(_ context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	m.order = append(m.order, item.ID)
	return nil
}

func (m *Memory) ListItems(_ context.Context) ([]*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Item, 0, len(m.items))
	idx := make(map[string]int, len(m.order))
	for i, id := range m.order {
		idx[id] = i
	}
	for _, it := range m.items {
		cp := *it
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return idx[out[i].ID] > idx[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetItemsByIDs(_ context.Context, ids []string) (map[string]*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*models.Item, len(ids))
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			cp := *it
			out[id] = &cp
		}
	}
	return out, nil
}
