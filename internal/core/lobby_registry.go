package core

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// LobbyRegistry owns every live lobby, keyed by generated id. Lookup and
// iteration stay safe while individual lobbies are mutated under their own
// locks.
type LobbyRegistry struct {
	mu      sync.RWMutex
	lobbies map[domain.LobbyID]Lobby
	nextID  domain.LobbyID
}

func NewLobbyRegistry() *LobbyRegistry {
	return &LobbyRegistry{lobbies: make(map[domain.LobbyID]Lobby)}
}

// NextID returns a fresh, strictly increasing lobby id starting at 0. Ids are
// never reused within the process lifetime; this is the sole source of lobby
// identity.
func (r *LobbyRegistry) NextID() domain.LobbyID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Add stores a lobby under its already-assigned id and subscribes to its
// destroyed notification so the entry is removed exactly once. A collision
// means id generation was bypassed; it is reported, never ignored.
func (r *LobbyRegistry) Add(l Lobby) error {
	id := l.ID()

	r.mu.Lock()
	if _, exists := r.lobbies[id]; exists {
		r.mu.Unlock()
		log.Error().Str("module", "core.lobbies").Int32("lobby", int32(id)).
			Msg("lobby id collision on add")
		return fmt.Errorf("%w: %d", ErrIDCollision, id)
	}
	r.lobbies[id] = l
	r.mu.Unlock()

	var handle int
	handle = l.OnDestroyed(func(dead Lobby) {
		dead.OffDestroyed(handle)
		r.Remove(dead.ID())
	})
	// A lobby destroyed between the store and the subscription would never
	// notify; sweep it here.
	if l.State() == domain.LobbyDestroyed {
		r.Remove(id)
	}
	log.Info().Str("module", "core.lobbies").Int32("lobby", int32(id)).
		Str("name", l.Name()).Msg("lobby registered")
	return nil
}

// Remove is idempotent; removing an unknown id is a no-op.
func (r *LobbyRegistry) Remove(id domain.LobbyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[id]; ok {
		delete(r.lobbies, id)
		log.Info().Str("module", "core.lobbies").Int32("lobby", int32(id)).Msg("lobby removed")
	}
}

func (r *LobbyRegistry) Get(id domain.LobbyID) (Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	return l, ok
}

// All returns a point-in-time snapshot for discovery iteration.
func (r *LobbyRegistry) All() []Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		out = append(out, l)
	}
	return out
}

func (r *LobbyRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

// Clear destroys every remaining lobby. Called at service shutdown.
func (r *LobbyRegistry) Clear() {
	for _, l := range r.All() {
		l.Destroy()
	}
}
