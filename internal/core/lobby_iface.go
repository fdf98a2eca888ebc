package core

import (
	"context"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// MemberData is a read-only member view for snapshots (no transport fields).
// Properties are only filled in for the member the snapshot was rendered for.
type MemberData struct {
	PeerID     domain.PeerID     `json:"peerId"`
	Username   string            `json:"username"`
	IsReady    bool              `json:"isReady"`
	Team       domain.TeamName   `json:"team,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// LobbyData is the structured snapshot of one lobby.
type LobbyData struct {
	ID          domain.LobbyID                      `json:"id"`
	Name        string                              `json:"name"`
	State       string                              `json:"state"`
	MaxPlayers  int                                 `json:"maxPlayers"`
	OwnerID     domain.PeerID                       `json:"ownerId"`
	Properties  map[string]string                   `json:"properties"`
	Members     []MemberData                        `json:"members"`
	Teams       map[domain.TeamName][]domain.PeerID `json:"teams,omitempty"`
	GameAddress string                              `json:"gameAddress,omitempty"`
	GamePort    int                                 `json:"gamePort,omitempty"`
}

// Lobby is the capability interface every lobby implementation satisfies.
// The coordination service never inspects concrete types; game-specific rule
// sets plug in behind it, selected by factory id.
type Lobby interface {
	ID() domain.LobbyID
	// SetID is called exactly once, by the coordination service right before
	// it registers the lobby.
	SetID(domain.LobbyID)
	Name() string
	MaxPlayers() int
	PlayerCount() int
	State() domain.LobbyState

	// AddPlayer creates the membership record and updates the peer context's
	// back-reference. Fails when the lobby is full, already started, or the
	// peer is already a member.
	AddPlayer(pc *PeerContext) (*Member, error)
	// RemovePlayer is idempotent and clears the peer context back-reference
	// and any team assignment.
	RemovePlayer(pc *PeerContext)
	Member(id domain.PeerID) (*Member, bool)
	// MemberData renders one member's packet under the lobby lock. Member
	// fields only mutate under that lock, so this is the safe way to read
	// them outside a lobby call.
	MemberData(id domain.PeerID) (MemberData, bool)

	SetProperty(m *Member, key, value string) error
	SetPlayerProperty(m *Member, key, value string) error
	SetReadyState(m *Member, ready bool)
	TryJoinTeam(team domain.TeamName, m *Member) bool

	// StartGameManually transitions toward InProgress, provisioning the game
	// session through the spawner collaborator. The call is bounded by ctx; a
	// failure or timeout leaves the lobby state unchanged.
	StartGameManually(ctx context.Context, pc *PeerContext) error

	Data(requester *Member) LobbyData
	PublicProperties(requester Peer) map[string]string
	HandleChatMessage(m *Member, raw []byte) PublishResult
	RoomAccess(m *Member) (domain.GameAccess, error)

	// OnDestroyed subscribes to the single destroyed notification; the handle
	// must be released with OffDestroyed once fired to avoid dangling
	// listeners.
	OnDestroyed(fn func(Lobby)) (handle int)
	OffDestroyed(handle int)
	Destroy()
}

// LobbyFactory builds a lobby instance from creation options and the owning
// peer. Registered in the FactoryRegistry under a factory id.
type LobbyFactory func(opts domain.LobbyOptions, owner Peer) (Lobby, error)

// Spawner provisions an actual game session for a starting lobby. It is the
// room/spawner collaborator boundary; implementations may block on I/O and
// must honor ctx cancellation.
type Spawner interface {
	Spawn(ctx context.Context, l Lobby) (domain.GameAccess, error)
}
