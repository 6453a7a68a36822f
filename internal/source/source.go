/*
Package source loads adoptable-pet records from upstream shelter feeds and
normalizes them into pet.Item.

Each upstream shape is an explicit struct with its own adapter function.
Loosely typed JSON never leaves this package.
*/
package source

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// ErrNotFound is returned by GetItem for an unknown id.
var ErrNotFound = errors.New("item not found")

// Source is the item collaborator of the enrichment core.
type Source interface {
	GetAllItems(ctx context.Context) ([]pet.Item, error)
	GetItem(ctx context.Context, id string) (pet.Item, error)
}

// Memory is an in-memory Source.
type Memory struct {
	mu    sync.RWMutex
	items map[string]pet.Item
}

// NewMemory creates a source holding items.
func NewMemory(items ...pet.Item) *Memory {
	m := &Memory{items: make(map[string]pet.Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

// Put adds or replaces an item.
func (m *Memory) Put(item pet.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

// GetAllItems returns every item ordered by id.
func (m *Memory) GetAllItems(ctx context.Context) ([]pet.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]pet.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetItem returns the item with id or ErrNotFound.
func (m *Memory) GetItem(ctx context.Context, id string) (pet.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return pet.Item{}, ErrNotFound
	}
	return it, nil
}

// Filter returns the items whose Source tag equals tag (case-insensitive).
// An empty tag returns items unchanged.
func Filter(items []pet.Item, tag string) []pet.Item {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return items
	}
	out := make([]pet.Item, 0, len(items))
	for _, it := range items {
		if strings.EqualFold(it.Source, tag) {
			out = append(out, it)
		}
	}
	return out
}
