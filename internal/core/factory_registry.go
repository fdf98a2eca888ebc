package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// FactoryRegistry maps factory ids to lobby constructors. Re-registration
// under an existing id overwrites: a later registration is assumed
// intentional (hot reload), so it is logged, not rejected.
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[domain.FactoryID]LobbyFactory
}

func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[domain.FactoryID]LobbyFactory)}
}

func (r *FactoryRegistry) Register(id domain.FactoryID, factory LobbyFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		log.Warn().Str("module", "core.factories").Str("factory", string(id)).
			Msg("overwriting existing lobby factory")
	}
	r.factories[id] = factory
}

func (r *FactoryRegistry) Resolve(id domain.FactoryID) (LobbyFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	return f, ok
}

func (r *FactoryRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.factories)
}
