package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// Settings is the policy surface of the lobby module.
type Settings struct {
	// CreatePermissionLevel is the minimum peer permission for creating a
	// lobby. Zero lets anyone create.
	CreatePermissionLevel int
	// DontAllowCreatingIfJoined refuses creation while the peer is in a lobby.
	DontAllowCreatingIfJoined bool
	// JoinedLimit caps how many lobbies one peer may be in concurrently.
	JoinedLimit int
	// StartTimeout bounds the game-session provisioning call.
	StartTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		CreatePermissionLevel:     0,
		DontAllowCreatingIfJoined: true,
		JoinedLimit:               1,
		StartTimeout:              10 * time.Second,
	}
}

// LobbyService is the coordination point for every lobby request. It owns the
// factory and lobby registries and the per-peer lobby contexts; lobbies own
// their members. One instance per process, no package-level state.
type LobbyService struct {
	settings  Settings
	factories *core.FactoryRegistry
	lobbies   *core.LobbyRegistry
	peers     *peerContexts
	spawner   core.Spawner
	policy    Policy
}

func NewLobbyService(settings Settings, spawner core.Spawner, policy Policy) *LobbyService {
	if settings.JoinedLimit < 1 {
		settings.JoinedLimit = 1
	}
	if settings.StartTimeout <= 0 {
		settings.StartTimeout = 10 * time.Second
	}
	return &LobbyService{
		settings:  settings,
		factories: core.NewFactoryRegistry(),
		lobbies:   core.NewLobbyRegistry(),
		peers:     newPeerContexts(settings.JoinedLimit),
		spawner:   spawner,
		policy:    policy,
	}
}

func (s *LobbyService) Factories() *core.FactoryRegistry { return s.factories }
func (s *LobbyService) Lobbies() *core.LobbyRegistry     { return s.lobbies }
func (s *LobbyService) Spawner() core.Spawner            { return s.spawner }

// RegisterFactory exposes the factory registry for wiring at startup.
func (s *LobbyService) RegisterFactory(id domain.FactoryID, f core.LobbyFactory) {
	s.factories.Register(id, f)
}

// CreateLobby builds a lobby through the named factory, registers it and
// returns its id.
func (s *LobbyService) CreateLobby(peer core.Peer, factory domain.FactoryID, options map[string]string) (domain.LobbyID, error) {
	if peer.Info().Permission < s.settings.CreatePermissionLevel {
		return 0, fmt.Errorf("%w: lobby creation requires level %d", core.ErrUnauthorized, s.settings.CreatePermissionLevel)
	}

	pc := s.peers.getOrCreate(peer)
	if s.settings.DontAllowCreatingIfJoined {
		if _, joined := pc.CurrentLobby(); joined {
			return 0, core.ErrAlreadyInLobby
		}
	}

	build, ok := s.factories.Resolve(factory)
	if !ok {
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownFactory, factory)
	}

	lobby, err := build(domain.OptionsFromMap(options), peer)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", core.ErrInvalidRequest, err)
	}

	lobby.SetID(s.lobbies.NextID())
	if err := s.lobbies.Add(lobby); err != nil {
		// Never leave a half-built lobby behind a failed registration.
		lobby.Destroy()
		return 0, err
	}

	log.Info().Str("module", "app.lobbies").Int32("lobby", int32(lobby.ID())).
		Str("factory", string(factory)).Str("owner", string(peer.ID())).Msg("lobby created")
	return lobby.ID(), nil
}

// JoinLobby adds the peer to the target lobby and returns a snapshot
// personalized for the new member.
func (s *LobbyService) JoinLobby(peer core.Peer, id domain.LobbyID) (core.LobbyData, error) {
	pc := s.peers.getOrCreate(peer)
	if len(pc.JoinedLobbies()) >= s.settings.JoinedLimit {
		if s.settings.JoinedLimit == 1 {
			return core.LobbyData{}, core.ErrAlreadyInLobby
		}
		return core.LobbyData{}, fmt.Errorf("%w: limit %d", core.ErrJoinedLimitExceed, s.settings.JoinedLimit)
	}

	lobby, ok := s.lobbies.Get(id)
	if !ok {
		return core.LobbyData{}, fmt.Errorf("%w: %d", core.ErrLobbyNotFound, id)
	}
	member, err := lobby.AddPlayer(pc)
	if err != nil {
		return core.LobbyData{}, err
	}
	return lobby.Data(member), nil
}

// LeaveLobby removes the peer from the target lobby. Leaving a lobby the peer
// never joined, or one that no longer exists, succeeds as a no-op.
func (s *LobbyService) LeaveLobby(peer core.Peer, id domain.LobbyID) {
	pc, ok := s.peers.get(peer.ID())
	if !ok {
		return
	}
	if lobby, ok := s.lobbies.Get(id); ok {
		lobby.RemovePlayer(pc)
	}
}

// Property is one key/value write of a batch. Batches are ordered; the first
// rejected write aborts the rest without rolling back the applied ones.
type Property struct {
	Key   string `json:"key" mapstructure:"key"`
	Value string `json:"value" mapstructure:"value"`
}

// SetLobbyProperties applies a batch of lobby-level property writes.
func (s *LobbyService) SetLobbyProperties(peer core.Peer, id domain.LobbyID, props []Property) error {
	lobby, ok := s.lobbies.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrLobbyNotFound, id)
	}
	member, _ := lobby.Member(peer.ID())
	for _, p := range props {
		if err := lobby.SetProperty(member, p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// SetMyProperties applies a batch of member-level property writes to the
// caller's membership in its current lobby.
func (s *LobbyService) SetMyProperties(peer core.Peer, props []Property) error {
	lobby, member, err := s.resolveMember(peer)
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := lobby.SetPlayerProperty(member, p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *LobbyService) SetReady(peer core.Peer, ready bool) error {
	lobby, member, err := s.resolveMember(peer)
	if err != nil {
		return err
	}
	lobby.SetReadyState(member, ready)
	return nil
}

func (s *LobbyService) JoinTeam(peer core.Peer, team domain.TeamName) error {
	lobby, member, err := s.resolveMember(peer)
	if err != nil {
		return err
	}
	if !lobby.TryJoinTeam(team, member) {
		return fmt.Errorf("%w: %s", core.ErrTeamJoinRefused, team)
	}
	return nil
}

// SendChatMessage relays a chat message to the caller's lobby. Invalid
// callers are dropped silently; chat never produces an error response.
func (s *LobbyService) SendChatMessage(peer core.Peer, raw []byte) {
	lobby, member, err := s.resolveMember(peer)
	if err != nil {
		log.Debug().Str("module", "app.lobbies").Str("peer", string(peer.ID())).
			Msg("chat from peer without membership dropped")
		return
	}

	res := lobby.HandleChatMessage(member, raw)
	if s.policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		if s.policy.OnBackpressure(lobby, slow) != KickMember {
			continue
		}
		if pc, ok := s.peers.get(slow.ID()); ok {
			lobby.RemovePlayer(pc)
			log.Warn().Str("module", "app.lobbies").Int32("lobby", int32(lobby.ID())).
				Str("peer", string(slow.ID())).Msg("kicked slow member")
		}
	}
}

// StartGame asks the caller's current lobby to start. The provisioning call
// is bounded by the configured start timeout.
func (s *LobbyService) StartGame(ctx context.Context, peer core.Peer) error {
	lobby, pc, err := s.resolveCurrentLobby(peer)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.settings.StartTimeout)
	defer cancel()
	return lobby.StartGameManually(ctx, pc)
}

// RoomAccess returns connection credentials for the caller's in-progress game.
func (s *LobbyService) RoomAccess(peer core.Peer) (domain.GameAccess, error) {
	lobby, _, err := s.resolveCurrentLobby(peer)
	if err != nil {
		return domain.GameAccess{}, err
	}
	member, _ := lobby.Member(peer.ID())
	return lobby.RoomAccess(member)
}

// MemberData returns the data packet of one member of one lobby.
func (s *LobbyService) MemberData(id domain.LobbyID, target domain.PeerID) (core.MemberData, error) {
	lobby, ok := s.lobbies.Get(id)
	if !ok {
		return core.MemberData{}, fmt.Errorf("%w: %d", core.ErrLobbyNotFound, id)
	}
	data, ok := lobby.MemberData(target)
	if !ok {
		return core.MemberData{}, fmt.Errorf("%w: %s", core.ErrMemberNotFound, target)
	}
	return data, nil
}

// LobbyInfo returns the generic snapshot of one lobby.
func (s *LobbyService) LobbyInfo(id domain.LobbyID) (core.LobbyData, error) {
	lobby, ok := s.lobbies.Get(id)
	if !ok {
		return core.LobbyData{}, fmt.Errorf("%w: %d", core.ErrLobbyNotFound, id)
	}
	return lobby.Data(nil), nil
}

// PublicGames renders the discovery feed: one summary per live lobby, built
// from a point-in-time registry snapshot.
func (s *LobbyService) PublicGames(peer core.Peer, filters domain.GameFilters) []domain.GameInfo {
	lobbies := s.lobbies.All()
	out := make([]domain.GameInfo, 0, len(lobbies))
	for _, l := range lobbies {
		data := l.Data(nil)
		if filters.Name != "" && filters.Name != data.Name {
			continue
		}
		if filters.HideFull && len(data.Members) >= data.MaxPlayers {
			continue
		}
		if filters.HideStarted && l.State() != domain.LobbyForming {
			continue
		}
		address := ""
		if data.GameAddress != "" {
			address = fmt.Sprintf("%s:%d", data.GameAddress, data.GamePort)
		}
		out = append(out, domain.GameInfo{
			ID:            data.ID,
			Type:          domain.GameInfoLobby,
			Name:          data.Name,
			Address:       address,
			MaxPlayers:    data.MaxPlayers,
			OnlinePlayers: len(data.Members),
			Properties:    l.PublicProperties(peer),
		})
	}
	return out
}

// OnDisconnect tears down the peer's lobby participation when its connection
// goes away.
func (s *LobbyService) OnDisconnect(peer core.Peer) {
	pc, ok := s.peers.get(peer.ID())
	if !ok {
		return
	}
	for _, id := range pc.JoinedLobbies() {
		if lobby, ok := s.lobbies.Get(id); ok {
			lobby.RemovePlayer(pc)
		}
	}
	s.peers.remove(peer.ID())
}

// Stop clears all process-wide lobby state. Every remaining lobby gets its
// destroyed notification.
func (s *LobbyService) Stop() {
	s.lobbies.Clear()
	s.factories.Clear()
	s.peers.clear()
	log.Info().Str("module", "app.lobbies").Msg("lobby service stopped")
}

func (s *LobbyService) resolveCurrentLobby(peer core.Peer) (core.Lobby, *core.PeerContext, error) {
	pc, ok := s.peers.get(peer.ID())
	if !ok {
		return nil, nil, core.ErrNotInLobby
	}
	id, ok := pc.CurrentLobby()
	if !ok {
		return nil, nil, core.ErrNotInLobby
	}
	lobby, ok := s.lobbies.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", core.ErrLobbyNotFound, id)
	}
	return lobby, pc, nil
}

func (s *LobbyService) resolveMember(peer core.Peer) (core.Lobby, *core.Member, error) {
	lobby, _, err := s.resolveCurrentLobby(peer)
	if err != nil {
		return nil, nil, err
	}
	member, ok := lobby.Member(peer.ID())
	if !ok {
		return nil, nil, core.ErrMemberNotFound
	}
	return lobby, member, nil
}
