package core

import (
	"sync"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// PeerContext is the per-connection lobby bookkeeping. It holds non-owning
// lobby ids; the lobby registry owns every Lobby instance. Created lazily by
// the coordination service on the first lobby-related request of a peer.
type PeerContext struct {
	peer Peer

	mu     sync.Mutex
	joined []domain.LobbyID
	limit  int
}

func NewPeerContext(peer Peer, joinedLimit int) *PeerContext {
	if joinedLimit < 1 {
		joinedLimit = 1
	}
	return &PeerContext{peer: peer, limit: joinedLimit}
}

func (c *PeerContext) Peer() Peer { return c.peer }

// CurrentLobby returns the single joined lobby under the default policy.
// With a limit above one it returns the first joined lobby.
func (c *PeerContext) CurrentLobby() (domain.LobbyID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.joined) == 0 {
		return 0, false
	}
	return c.joined[0], true
}

func (c *PeerContext) JoinedLobbies() []domain.LobbyID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.LobbyID, len(c.joined))
	copy(out, c.joined)
	return out
}

// attach records membership in a lobby. Called by the lobby itself from
// AddPlayer so the back-reference can never drift from the member set.
func (c *PeerContext) attach(id domain.LobbyID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, j := range c.joined {
		if j == id {
			return ErrAlreadyMember
		}
	}
	if len(c.joined) >= c.limit {
		return ErrJoinedLimitExceed
	}
	c.joined = append(c.joined, id)
	return nil
}

// detach is idempotent; detaching a never-joined lobby is a no-op.
func (c *PeerContext) detach(id domain.LobbyID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, j := range c.joined {
		if j == id {
			c.joined = append(c.joined[:i], c.joined[i+1:]...)
			return
		}
	}
}
