package measurement

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrAdapterNotFound is returned by Registry.Lookup when a source names an
// adapter that was never registered.
var ErrAdapterNotFound = errors.New("could not find adapter")

// Adapter fetches and parses one upstream format. Implementations must not
// mutate the Source and own their retry/backoff behaviour.
type Adapter interface {
	Fetch(ctx context.Context, src Source) (RawFetchResult, error)
}

// Gateway is the persistence contract the pipeline writes through.
// EnsureSchema must have completed before the first WriteBatch.
type Gateway interface {
	EnsureSchema(ctx context.Context) error
	WriteBatch(ctx context.Context, sourceName string, measurements []Measurement) (int, error)
}

// FailureNotifier routes a per-source failure to the alerting channel.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, contacts []string, sourceName string, cause error)
}

// Registry maps adapter identifiers to implementations. Populated once at
// startup; lookups afterwards are concurrent with cycle execution.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter under the given identifier, replacing any
// previous binding.
func (r *Registry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = a
}

// Lookup resolves an adapter by identifier.
func (r *Registry) Lookup(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAdapterNotFound, name)
	}
	return a, nil
}
