package coprocessor

import (
	"context"
	"sync"
)

// MemoryRepository keeps ciphertexts in a map.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Ciphertext
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Ciphertext)}
}

func (r *MemoryRepository) Save(_ context.Context, c Ciphertext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.Handle] = c
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, handle string) (*Ciphertext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[handle]
	if !ok {
		return nil, ErrHandleNotFound
	}
	return &c, nil
}
