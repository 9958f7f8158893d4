package dimension

import (
	"context"
	"errors"
	"sync"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
	"github.com/ETAnderson/deskflow/internal/state"
)

// ErrEmptyKey means the natural key normalized down to nothing (e.g. a name
// that was only a phone extension).
var ErrEmptyKey = errors.New("dimension natural key is empty after normalization")

// Resolver maps natural keys to surrogate ids with create-if-absent
// semantics. The in-process cache is a read-through optimization only; the
// store's unique constraint is the arbiter of uniqueness, so the resolver
// stays correct with the cache disabled or cold. The cache is invalidated
// only by process restart.
type Resolver struct {
	store state.Store

	mu    sync.RWMutex
	cache map[cacheKey]uint64
}

type cacheKey struct {
	kind domain.DimensionKind
	key  string
}

func NewResolver(store state.Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[cacheKey]uint64),
	}
}

// ResolveAgent resolves an agent display name, honoring admin-maintained
// aliases: names that differ across source systems (truncation, legal name
// vs. preferred name) map to the canonical agent before any creation.
func (r *Resolver) ResolveAgent(ctx context.Context, rawName, team string) (uint64, error) {
	key := ingest.NormalizeAgentName(rawName)
	if key == "" {
		return 0, ErrEmptyKey
	}

	if id, ok := r.cached(domain.DimensionAgent, key); ok {
		return id, nil
	}

	if id, ok, err := r.store.FindAgentAlias(ctx, key); err != nil {
		return 0, err
	} else if ok {
		r.remember(domain.DimensionAgent, key, id)
		return id, nil
	}

	return r.resolve(ctx, domain.DimensionAgent, key, ingest.DisplayAgentName(key), team)
}

func (r *Resolver) ResolveChannel(ctx context.Context, name string) (uint64, error) {
	key := ingest.NormalizeKey(name)
	if key == "" {
		return 0, ErrEmptyKey
	}
	return r.resolve(ctx, domain.DimensionChannel, key, name, "")
}

func (r *Resolver) ResolveStatus(ctx context.Context, name string) (uint64, error) {
	key := ingest.NormalizeKey(name)
	if key == "" {
		return 0, ErrEmptyKey
	}
	return r.resolve(ctx, domain.DimensionStatus, key, name, "")
}

func (r *Resolver) resolve(ctx context.Context, kind domain.DimensionKind, key, display, team string) (uint64, error) {
	if id, ok := r.cached(kind, key); ok {
		return id, nil
	}

	id, ok, err := r.store.FindDimension(ctx, kind, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Create-or-get: if a concurrent resolver created the key first, the
		// store returns the surviving row's id instead of a conflict.
		id, err = r.store.CreateDimension(ctx, kind, key, display, team)
		if err != nil {
			return 0, err
		}
	}

	r.remember(kind, key, id)
	return id, nil
}

func (r *Resolver) cached(kind domain.DimensionKind, key string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.cache[cacheKey{kind, key}]
	return id, ok
}

func (r *Resolver) remember(kind domain.DimensionKind, key string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache[cacheKey{kind, key}] = id
}
