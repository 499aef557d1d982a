package engine

import (
	"context"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/registry"
)

// Run is one load-mutate-save transaction: it loads the registry from s,
// hands fn an Engine over it and saves the result if fn succeeds. A
// failing fn leaves the stored registry as it was.
func Run(ctx context.Context, s registry.Store, fn func(*Engine) error, opts ...Option) error {
	return registry.Transact(ctx, s, func(reg *checklist.Registry) error {
		return fn(New(reg, opts...))
	})
}
