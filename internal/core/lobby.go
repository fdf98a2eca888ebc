package core

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

type TeamConfig struct {
	Name       domain.TeamName
	MaxPlayers int
}

// LobbySettings configures a base lobby. Concrete lobby variants customize
// behavior through the hooks instead of reimplementing membership handling.
type LobbySettings struct {
	Name       string
	MaxPlayers int
	Teams      []TeamConfig

	// RequireAllReady gates manual start on every member being ready.
	RequireAllReady bool
	// KeepWhenEmpty disables the destroy-on-last-leave policy.
	KeepWhenEmpty bool

	// Validation hooks. A nil hook accepts everything.
	PropertyValidator       func(key, value string) error
	PlayerPropertyValidator func(key, value string) error
	// PublicFilter renders the discovery-safe property view. Nil exposes all.
	PublicFilter func(props map[string]string) map[string]string

	// Chat rate limit per member. Zero ChatLimit disables limiting.
	ChatLimit    int
	ChatInterval time.Duration
}

// lobbyImpl is the thread-safe base lobby. It serializes its own mutation
// under one mutex; the registry and other lobbies are never behind this lock.
type lobbyImpl struct {
	settings LobbySettings
	owner    Peer
	spawner  Spawner

	mu         sync.RWMutex
	id         domain.LobbyID
	state      domain.LobbyState
	properties map[string]string
	members    map[domain.PeerID]*Member
	access     *domain.GameAccess

	handlers   map[int]func(Lobby)
	nextHandle int
	destroyed  bool

	chat *ChatRateLimiter
}

// NewLobby builds a base lobby owned by the creating peer. Initial properties
// come from the creation options; the id stays unassigned until registration.
func NewLobby(settings LobbySettings, owner Peer, spawner Spawner, props map[string]string) Lobby {
	if settings.MaxPlayers <= 0 {
		settings.MaxPlayers = domain.DefaultMaxPlayers
	}
	l := &lobbyImpl{
		settings:   settings,
		owner:      owner,
		spawner:    spawner,
		properties: make(map[string]string),
		members:    make(map[domain.PeerID]*Member),
		handlers:   make(map[int]func(Lobby)),
	}
	maps.Copy(l.properties, props)
	if settings.ChatLimit > 0 {
		l.chat = NewChatRateLimiter(settings.ChatLimit, settings.ChatInterval)
	}
	return l
}

func (l *lobbyImpl) ID() domain.LobbyID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.id
}

func (l *lobbyImpl) SetID(id domain.LobbyID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = id
}

func (l *lobbyImpl) Name() string    { return l.settings.Name }
func (l *lobbyImpl) MaxPlayers() int { return l.settings.MaxPlayers }

func (l *lobbyImpl) PlayerCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

func (l *lobbyImpl) State() domain.LobbyState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *lobbyImpl) AddPlayer(pc *PeerContext) (*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != domain.LobbyForming {
		return nil, ErrLobbyStarted
	}
	if len(l.members) >= l.settings.MaxPlayers {
		return nil, ErrLobbyFull
	}
	pid := pc.Peer().ID()
	if _, ok := l.members[pid]; ok {
		return nil, ErrAlreadyMember
	}
	if err := pc.attach(l.id); err != nil {
		return nil, err
	}

	m := newMember(pc)
	l.members[pid] = m
	log.Info().Str("module", "core.lobby").Int32("lobby", int32(l.id)).
		Str("peer", string(pid)).Int("players", len(l.members)).Msg("player added")
	return m, nil
}

func (l *lobbyImpl) RemovePlayer(pc *PeerContext) {
	pid := pc.Peer().ID()

	l.mu.Lock()
	if _, ok := l.members[pid]; ok {
		delete(l.members, pid)
		log.Info().Str("module", "core.lobby").Int32("lobby", int32(l.id)).
			Str("peer", string(pid)).Int("players", len(l.members)).Msg("player removed")
	}
	// Always clear the back-reference, even for a never-joined peer.
	pc.detach(l.id)
	empty := len(l.members) == 0
	l.mu.Unlock()

	if empty && !l.settings.KeepWhenEmpty {
		l.destroy(true)
	}
}

func (l *lobbyImpl) Member(id domain.PeerID) (*Member, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.members[id]
	return m, ok
}

func (l *lobbyImpl) MemberData(id domain.PeerID) (MemberData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.members[id]
	if !ok {
		return MemberData{}, false
	}
	return m.DataPacket(), true
}

func (l *lobbyImpl) SetProperty(m *Member, key, value string) error {
	if l.settings.PropertyValidator != nil {
		if err := l.settings.PropertyValidator(key, value); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrPropertyRejected, key, err)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.properties[key] = value
	return nil
}

func (l *lobbyImpl) SetPlayerProperty(m *Member, key, value string) error {
	if l.settings.PlayerPropertyValidator != nil {
		if err := l.settings.PlayerPropertyValidator(key, value); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrPropertyRejected, key, err)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m.properties[key] = value
	return nil
}

func (l *lobbyImpl) SetReadyState(m *Member, ready bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.isReady = ready
}

func (l *lobbyImpl) TryJoinTeam(team domain.TeamName, m *Member) bool {
	var cfg *TeamConfig
	for i := range l.settings.Teams {
		if l.settings.Teams[i].Name == team {
			cfg = &l.settings.Teams[i]
			break
		}
	}
	if cfg == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if m.team == team {
		return true
	}
	if cfg.MaxPlayers > 0 {
		count := 0
		for _, other := range l.members {
			if other.team == team {
				count++
			}
		}
		if count >= cfg.MaxPlayers {
			return false
		}
	}
	m.team = team
	return true
}

func (l *lobbyImpl) StartGameManually(ctx context.Context, pc *PeerContext) error {
	l.mu.Lock()
	if pc.Peer().ID() != l.owner.ID() {
		l.mu.Unlock()
		return ErrNotLobbyOwner
	}
	if l.state != domain.LobbyForming {
		l.mu.Unlock()
		return ErrLobbyStarted
	}
	if l.settings.RequireAllReady {
		for _, m := range l.members {
			if !m.isReady {
				l.mu.Unlock()
				return ErrNotAllReady
			}
		}
	}
	l.state = domain.LobbyStarting
	l.mu.Unlock()

	// Provisioning is the one external call of this lobby; it runs outside
	// the lock, bounded by ctx. Any failure reverts to Forming.
	access, err := l.spawner.Spawn(ctx, l)
	l.mu.Lock()
	if err != nil {
		l.state = domain.LobbyForming
		l.mu.Unlock()
		log.Error().Err(err).Str("module", "core.lobby").
			Int32("lobby", int32(l.id)).Msg("game provisioning failed")
		return fmt.Errorf("%w: %s", ErrProvisionFailed, err)
	}
	l.access = &access
	l.state = domain.LobbyInProgress
	l.mu.Unlock()

	log.Info().Str("module", "core.lobby").Int32("lobby", int32(l.id)).
		Str("address", access.Address).Int("port", access.Port).Msg("game started")
	l.broadcastJSON(map[string]any{
		"type":    "lobby_game_started",
		"lobbyId": l.ID(),
		"address": access.Address,
		"port":    access.Port,
	})
	return nil
}

func (l *lobbyImpl) Data(requester *Member) LobbyData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	data := LobbyData{
		ID:         l.id,
		Name:       l.settings.Name,
		State:      l.state.String(),
		MaxPlayers: l.settings.MaxPlayers,
		OwnerID:    l.owner.ID(),
		Properties: maps.Clone(l.properties),
	}
	for _, m := range l.members {
		md := m.DataPacket()
		// Member-private fields only go to the member itself.
		if requester == nil || requester != m {
			md.Properties = nil
		}
		data.Members = append(data.Members, md)
	}
	if len(l.settings.Teams) > 0 {
		data.Teams = make(map[domain.TeamName][]domain.PeerID, len(l.settings.Teams))
		for _, t := range l.settings.Teams {
			data.Teams[t.Name] = []domain.PeerID{}
		}
		for _, m := range l.members {
			if m.team != "" {
				data.Teams[m.team] = append(data.Teams[m.team], m.PeerID())
			}
		}
	}
	if l.access != nil {
		data.GameAddress = l.access.Address
		data.GamePort = l.access.Port
	}
	return data
}

func (l *lobbyImpl) PublicProperties(requester Peer) map[string]string {
	l.mu.RLock()
	props := maps.Clone(l.properties)
	l.mu.RUnlock()
	if l.settings.PublicFilter != nil {
		return l.settings.PublicFilter(props)
	}
	return props
}

func (l *lobbyImpl) HandleChatMessage(m *Member, raw []byte) PublishResult {
	if l.chat != nil && !l.chat.Allow(m.PeerID()) {
		log.Warn().Str("module", "core.lobby").Int32("lobby", int32(l.ID())).
			Str("peer", string(m.PeerID())).Msg("chat rate limited")
		return PublishResult{}
	}
	return l.broadcastJSON(map[string]any{
		"type":    "lobby_chat",
		"lobbyId": l.ID(),
		"from":    m.Peer().Info().Username,
		"text":    string(raw),
	})
}

func (l *lobbyImpl) RoomAccess(m *Member) (domain.GameAccess, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state != domain.LobbyInProgress || l.access == nil {
		return domain.GameAccess{}, ErrLobbyNotStarted
	}
	return *l.access, nil
}

func (l *lobbyImpl) OnDestroyed(fn func(Lobby)) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextHandle++
	l.handlers[l.nextHandle] = fn
	return l.nextHandle
}

func (l *lobbyImpl) OffDestroyed(handle int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, handle)
}

// Destroy fires the destroyed notification exactly once, detaching every
// remaining member first.
func (l *lobbyImpl) Destroy() {
	l.destroy(false)
}

// destroy commits the destroyed state. With onlyIfEmpty set it bails when a
// member joined between the caller's empty check and this critical section,
// leaving the lobby alive for the new member.
func (l *lobbyImpl) destroy(onlyIfEmpty bool) {
	l.mu.Lock()
	if l.destroyed || (onlyIfEmpty && len(l.members) > 0) {
		l.mu.Unlock()
		return
	}
	l.destroyed = true
	l.state = domain.LobbyDestroyed
	for pid, m := range l.members {
		m.ctx.detach(l.id)
		delete(l.members, pid)
	}
	handlers := make([]func(Lobby), 0, len(l.handlers))
	for _, fn := range l.handlers {
		handlers = append(handlers, fn)
	}
	clear(l.handlers)
	l.mu.Unlock()

	log.Info().Str("module", "core.lobby").Int32("lobby", int32(l.ID())).Msg("lobby destroyed")
	for _, fn := range handlers {
		fn(l)
	}
}

func (l *lobbyImpl) broadcastJSON(v any) PublishResult {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.lobby").Msg("broadcast marshal")
		return PublishResult{}
	}

	l.mu.RLock()
	peers := make([]Peer, 0, len(l.members))
	for _, m := range l.members {
		peers = append(peers, m.Peer())
	}
	l.mu.RUnlock()

	res := PublishResult{}
	for _, p := range peers {
		if err := p.TrySend(Frame(b)); err != nil {
			res.Dropped = append(res.Dropped, p)
			continue
		}
		res.SentTo++
	}
	return res
}
