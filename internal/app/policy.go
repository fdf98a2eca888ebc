package app

import "github.com/karim-dev-coder/master-server-toolkit/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to members whose connections cannot keep up
// with lobby broadcasts.
type Policy interface {
	OnBackpressure(l core.Lobby, p core.Peer) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(l core.Lobby, p core.Peer) BackpressureAction {
	return KickMember
}
