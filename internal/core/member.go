package core

import (
	"maps"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// Member is one peer's participation record inside one lobby. The owning
// lobby serializes all mutation under its own lock; Member itself carries no
// locking. It holds a non-owning handle back to the peer context and does not
// keep the connection alive.
type Member struct {
	ctx *PeerContext

	properties map[string]string
	isReady    bool
	team       domain.TeamName
}

func newMember(ctx *PeerContext) *Member {
	return &Member{
		ctx:        ctx,
		properties: make(map[string]string),
	}
}

func (m *Member) PeerID() domain.PeerID    { return m.ctx.Peer().ID() }
func (m *Member) Peer() Peer               { return m.ctx.Peer() }
func (m *Member) Context() *PeerContext    { return m.ctx }
func (m *Member) Team() domain.TeamName    { return m.team }
func (m *Member) IsReady() bool            { return m.isReady }
func (m *Member) Property(k string) string { return m.properties[k] }

// DataPacket renders the member for snapshots. Must run under the owning
// lobby's lock; use Lobby.MemberData from outside. Full properties are
// included; the lobby decides whether the packet goes to the member itself
// or is stripped first.
func (m *Member) DataPacket() MemberData {
	return MemberData{
		PeerID:     m.PeerID(),
		Username:   m.ctx.Peer().Info().Username,
		IsReady:    m.isReady,
		Team:       m.team,
		Properties: maps.Clone(m.properties),
	}
}
