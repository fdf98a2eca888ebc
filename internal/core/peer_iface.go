package core

import "github.com/karim-dev-coder/master-server-toolkit/internal/domain"

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// Peer abstracts one connected client for the coordination layer.
// Owned by the adapter; the adapter must Close() it.
type Peer interface {
	ID() domain.PeerID
	Info() *domain.PeerInfo

	// TrySend queues a frame without blocking. Returns an error when the
	// peer's send buffer is full or the connection is gone.
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []Peer
}
