package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// wsPeer binds one WebSocket connection to a peer identity. Owned by the
// controller; the controller must Close() it.
type wsPeer struct {
	info *domain.PeerInfo
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSPeer(info *domain.PeerInfo, conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		info: info,
		conn: conn,
		send: make(chan core.Frame, 32),
	}
}

func (p *wsPeer) ID() domain.PeerID { return p.info.ID }

func (p *wsPeer) Info() *domain.PeerInfo { return p.info }

func (p *wsPeer) TrySend(f core.Frame) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return core.ErrConnectionClosed
	}
	select {
	case p.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (p *wsPeer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.send)
	_ = p.conn.Close()
	p.mu.Unlock()
}
