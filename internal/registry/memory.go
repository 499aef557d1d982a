package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/tasksync/internal/checklist"
)

// MemoryStore keeps the registry in process. Load and Save copy, so
// callers never share state with the store.
type MemoryStore struct {
	mu  sync.Mutex
	reg *checklist.Registry

	// tx is a one-slot semaphore held across a Transact cycle.
	tx chan struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reg: checklist.NewRegistry(), tx: make(chan struct{}, 1)}
}

// Lock serializes load-mutate-save cycles within the process, waiting
// until the store is free or ctx is done.
func (s *MemoryStore) Lock(ctx context.Context) (func() error, error) {
	select {
	case s.tx <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("lock registry: %w", ctx.Err())
	}
	var once sync.Once
	return func() error {
		once.Do(func() { <-s.tx })
		return nil
	}, nil
}

func (s *MemoryStore) Load(ctx context.Context) (*checklist.Registry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, reg *checklist.Registry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := reg.CheckInvariants(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg = reg.Clone()
	return nil
}
