package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

type fakePeer struct {
	info *domain.PeerInfo

	mu     sync.Mutex
	frames []Frame
	reject bool
}

func newFakePeer(name string) *fakePeer {
	return &fakePeer{info: &domain.PeerInfo{ID: domain.PeerID("peer-" + name), Username: name}}
}

func (p *fakePeer) ID() domain.PeerID      { return p.info.ID }
func (p *fakePeer) Info() *domain.PeerInfo { return p.info }
func (p *fakePeer) Close()                 {}

func (p *fakePeer) TrySend(f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return ErrBackpressure
	}
	p.frames = append(p.frames, f)
	return nil
}

func (p *fakePeer) received() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

type stubSpawner struct {
	fail   bool
	access domain.GameAccess
}

func (s *stubSpawner) Spawn(ctx context.Context, l Lobby) (domain.GameAccess, error) {
	if err := ctx.Err(); err != nil {
		return domain.GameAccess{}, err
	}
	if s.fail {
		return domain.GameAccess{}, errors.New("no capacity")
	}
	return s.access, nil
}

func newTestLobby(t *testing.T, settings LobbySettings, owner Peer) Lobby {
	t.Helper()
	if settings.Name == "" {
		settings.Name = "arena"
	}
	return NewLobby(settings, owner, &stubSpawner{access: domain.GameAccess{Address: "10.0.0.5", Port: 7777}}, nil)
}

func join(t *testing.T, l Lobby, p Peer) (*PeerContext, *Member) {
	t.Helper()
	pc := NewPeerContext(p, 1)
	m, err := l.AddPlayer(pc)
	require.NoError(t, err)
	return pc, m
}

func TestLobby_AddPlayer_SetsBackReferenceAndCount(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	l.SetID(7)

	pc, _ := join(t, l, owner)

	require.Equal(t, 1, l.PlayerCount())
	current, ok := pc.CurrentLobby()
	require.True(t, ok)
	assert.Equal(t, domain.LobbyID(7), current)
}

func TestLobby_AddPlayer_Twice(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)

	pc, _ := join(t, l, owner)
	_, err := l.AddPlayer(pc)
	require.ErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, 1, l.PlayerCount())
}

func TestLobby_AddPlayer_Full(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 1}, owner)
	join(t, l, owner)

	_, err := l.AddPlayer(NewPeerContext(newFakePeer("bob"), 1))
	require.ErrorIs(t, err, ErrLobbyFull)
}

func TestLobby_RemovePlayer_IdempotentAndClearsContext(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4, KeepWhenEmpty: true}, owner)
	l.SetID(3)

	pc, _ := join(t, l, owner)
	l.RemovePlayer(pc)

	assert.Equal(t, 0, l.PlayerCount())
	_, ok := pc.CurrentLobby()
	assert.False(t, ok)

	// Second removal and removal of a never-joined peer are no-ops.
	l.RemovePlayer(pc)
	l.RemovePlayer(NewPeerContext(newFakePeer("stranger"), 1))
	assert.Equal(t, 0, l.PlayerCount())
}

func TestLobby_DestroyedWhenLastMemberLeaves(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)

	notified := 0
	l.OnDestroyed(func(Lobby) { notified++ })

	pc, _ := join(t, l, owner)
	l.RemovePlayer(pc)

	assert.Equal(t, domain.LobbyDestroyed, l.State())
	assert.Equal(t, 1, notified)

	// Destroy is idempotent; the notification fires exactly once.
	l.Destroy()
	assert.Equal(t, 1, notified)
}

func TestLobby_Destroy_DetachesMembers(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	pc, _ := join(t, l, owner)

	l.Destroy()

	_, ok := pc.CurrentLobby()
	assert.False(t, ok)
	assert.Equal(t, 0, l.PlayerCount())
}

func TestLobby_PropertyValidationHook(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{
		MaxPlayers: 4,
		PropertyValidator: func(key, value string) error {
			if key == "rounds" && value == "bad" {
				return fmt.Errorf("out of range")
			}
			return nil
		},
	}, owner)
	_, m := join(t, l, owner)

	require.NoError(t, l.SetProperty(m, "map", "arena2"))
	err := l.SetProperty(m, "rounds", "bad")
	require.ErrorIs(t, err, ErrPropertyRejected)
	assert.Contains(t, err.Error(), "rounds")

	data := l.Data(nil)
	assert.Equal(t, "arena2", data.Properties["map"])
	_, rejected := data.Properties["rounds"]
	assert.False(t, rejected)
}

func TestLobby_SetReadyState_AlwaysSucceeds(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	_, m := join(t, l, owner)

	l.SetReadyState(m, true)
	assert.True(t, m.IsReady())
	l.SetReadyState(m, false)
	assert.False(t, m.IsReady())
}

func TestLobby_TryJoinTeam_MovesAtomically(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{
		MaxPlayers: 4,
		Teams: []TeamConfig{
			{Name: "red", MaxPlayers: 1},
			{Name: "blue", MaxPlayers: 1},
		},
	}, owner)
	_, a := join(t, l, owner)
	_, b := join(t, l, newFakePeer("bob"))

	require.True(t, l.TryJoinTeam("red", a))
	require.True(t, l.TryJoinTeam("blue", a))
	assert.Equal(t, domain.TeamName("blue"), a.Team())

	// Red freed up by the move; blue is now full.
	require.True(t, l.TryJoinTeam("red", b))
	assert.False(t, l.TryJoinTeam("blue", b))
	assert.Equal(t, domain.TeamName("red"), b.Team())

	assert.False(t, l.TryJoinTeam("green", a), "unknown team")
}

func TestLobby_StartGame_OwnerOnly(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	join(t, l, owner)
	bobCtx, _ := join(t, l, newFakePeer("bob"))

	err := l.StartGameManually(context.Background(), bobCtx)
	require.ErrorIs(t, err, ErrNotLobbyOwner)
	assert.Equal(t, domain.LobbyForming, l.State())
}

func TestLobby_StartGame_Success(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	pc, m := join(t, l, owner)

	require.NoError(t, l.StartGameManually(context.Background(), pc))
	assert.Equal(t, domain.LobbyInProgress, l.State())

	access, err := l.RoomAccess(m)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", access.Address)
	assert.Equal(t, 7777, access.Port)

	// Members hear about the start.
	assert.Equal(t, 1, owner.received())

	// A second start is refused.
	err = l.StartGameManually(context.Background(), pc)
	require.ErrorIs(t, err, ErrLobbyStarted)
}

func TestLobby_StartGame_ProvisioningFailureLeavesStateUnchanged(t *testing.T) {
	owner := newFakePeer("alice")
	l := NewLobby(LobbySettings{Name: "arena", MaxPlayers: 4}, owner, &stubSpawner{fail: true}, nil)
	pc, m := join(t, l, owner)

	err := l.StartGameManually(context.Background(), pc)
	require.ErrorIs(t, err, ErrProvisionFailed)
	assert.Equal(t, domain.LobbyForming, l.State())

	_, err = l.RoomAccess(m)
	require.ErrorIs(t, err, ErrLobbyNotStarted)
}

func TestLobby_StartGame_CancelledContext(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	pc, _ := join(t, l, owner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.StartGameManually(ctx, pc)
	require.ErrorIs(t, err, ErrProvisionFailed)
	assert.Equal(t, domain.LobbyForming, l.State())
}

func TestLobby_StartGame_RequireAllReady(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4, RequireAllReady: true}, owner)
	pc, m := join(t, l, owner)

	err := l.StartGameManually(context.Background(), pc)
	require.ErrorIs(t, err, ErrNotAllReady)

	l.SetReadyState(m, true)
	require.NoError(t, l.StartGameManually(context.Background(), pc))
}

func TestLobby_JoinAfterStartFails(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	pc, _ := join(t, l, owner)
	require.NoError(t, l.StartGameManually(context.Background(), pc))

	_, err := l.AddPlayer(NewPeerContext(newFakePeer("late"), 1))
	require.ErrorIs(t, err, ErrLobbyStarted)
}

func TestLobby_ChatBroadcastReportsDropped(t *testing.T) {
	owner := newFakePeer("alice")
	slow := newFakePeer("bob")
	slow.reject = true

	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	join(t, l, owner)
	_, m := join(t, l, slow)

	res := l.HandleChatMessage(m, []byte("hello"))
	assert.Equal(t, 1, res.SentTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, slow.ID(), res.Dropped[0].ID())
}

func TestLobby_ChatRateLimit(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4, ChatLimit: 2}, owner)
	_, m := join(t, l, owner)

	l.HandleChatMessage(m, []byte("one"))
	l.HandleChatMessage(m, []byte("two"))
	res := l.HandleChatMessage(m, []byte("three"))
	assert.Equal(t, 0, res.SentTo, "third message inside the window is dropped")
	assert.Equal(t, 2, owner.received())
}

func TestLobby_Data_Personalization(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	l.SetID(1)
	_, a := join(t, l, owner)
	_, b := join(t, l, newFakePeer("bob"))

	require.NoError(t, l.SetPlayerProperty(a, "loadout", "sniper"))
	require.NoError(t, l.SetPlayerProperty(b, "loadout", "shotgun"))

	personal := l.Data(a)
	for _, md := range personal.Members {
		if md.PeerID == a.PeerID() {
			assert.Equal(t, "sniper", md.Properties["loadout"])
		} else {
			assert.Nil(t, md.Properties, "other members' properties stay private")
		}
	}

	generic := l.Data(nil)
	for _, md := range generic.Members {
		assert.Nil(t, md.Properties)
	}
}

func TestLobby_PublicProperties_Filter(t *testing.T) {
	owner := newFakePeer("alice")
	l := NewLobby(LobbySettings{
		Name:       "arena",
		MaxPlayers: 4,
		PublicFilter: func(props map[string]string) map[string]string {
			delete(props, "password")
			return props
		},
	}, owner, &stubSpawner{}, map[string]string{"map": "dust", "password": "hunter2"})

	props := l.PublicProperties(owner)
	assert.Equal(t, "dust", props["map"])
	_, leaked := props["password"]
	assert.False(t, leaked)

	// The filter works on a copy; the lobby still holds the property.
	assert.Equal(t, "hunter2", l.Data(nil).Properties["password"])
}

func TestLobby_MemberData_SnapshotsUnderLock(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	_, m := join(t, l, owner)

	require.NoError(t, l.SetPlayerProperty(m, "skin", "red"))
	l.SetReadyState(m, true)

	data, ok := l.MemberData(owner.ID())
	require.True(t, ok)
	assert.True(t, data.IsReady)
	assert.Equal(t, "red", data.Properties["skin"])

	// The packet is a copy; later writes do not reach it.
	require.NoError(t, l.SetPlayerProperty(m, "skin", "blue"))
	assert.Equal(t, "red", data.Properties["skin"])

	_, ok = l.MemberData("peer-stranger")
	assert.False(t, ok)
}

func TestLobby_DestroyOnEmptyYieldsToNewMember(t *testing.T) {
	owner := newFakePeer("alice")
	l := newTestLobby(t, LobbySettings{MaxPlayers: 4}, owner)
	pc, _ := join(t, l, owner)

	// A leave can decide the lobby is empty and then lose the race to a
	// join landing before the destroy commits; the empty-only path must
	// leave the repopulated lobby alive.
	l.(*lobbyImpl).destroy(true)
	assert.Equal(t, domain.LobbyForming, l.State())
	assert.Equal(t, 1, l.PlayerCount())
	current, ok := pc.CurrentLobby()
	require.True(t, ok)
	assert.Equal(t, l.ID(), current)

	// An unconditional destroy still wins.
	l.Destroy()
	assert.Equal(t, domain.LobbyDestroyed, l.State())
}
