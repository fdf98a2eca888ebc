package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// peerContexts is the per-connection state map of the coordination service,
// keyed by peer id and created lazily on the first lobby-related request.
type peerContexts struct {
	mu          sync.RWMutex
	contexts    map[domain.PeerID]*core.PeerContext
	joinedLimit int
}

func newPeerContexts(joinedLimit int) *peerContexts {
	return &peerContexts{
		contexts:    make(map[domain.PeerID]*core.PeerContext),
		joinedLimit: joinedLimit,
	}
}

func (p *peerContexts) getOrCreate(peer core.Peer) *core.PeerContext {
	pid := peer.ID()

	p.mu.RLock()
	pc, ok := p.contexts[pid]
	p.mu.RUnlock()
	if ok {
		return pc
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pc, ok = p.contexts[pid]; ok {
		return pc
	}
	pc = core.NewPeerContext(peer, p.joinedLimit)
	p.contexts[pid] = pc
	log.Debug().Str("module", "app.peers").Str("peer", string(pid)).Msg("created lobby context")
	return pc
}

// get returns the existing context without creating one; read paths use this
// so a stray lookup does not allocate state for unknown peers.
func (p *peerContexts) get(pid domain.PeerID) (*core.PeerContext, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pc, ok := p.contexts[pid]
	return pc, ok
}

func (p *peerContexts) remove(pid domain.PeerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.contexts, pid)
}

func (p *peerContexts) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.contexts)
}
