package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// StaticSpawner is the default core.Spawner: it hands out sequential ports on
// a fixed host instead of launching anything. Deployments with a real game
// server fleet replace it behind the same interface.
type StaticSpawner struct {
	Host     string
	PortBase int

	mu   sync.Mutex
	next int
}

func NewStaticSpawner(host string, portBase int) *StaticSpawner {
	if host == "" {
		host = "127.0.0.1"
	}
	if portBase <= 0 {
		portBase = 7000
	}
	return &StaticSpawner{Host: host, PortBase: portBase}
}

func (s *StaticSpawner) Spawn(ctx context.Context, l core.Lobby) (domain.GameAccess, error) {
	if err := ctx.Err(); err != nil {
		return domain.GameAccess{}, err
	}

	s.mu.Lock()
	port := s.PortBase + s.next
	s.next++
	s.mu.Unlock()

	access := domain.GameAccess{
		Address: s.Host,
		Port:    port,
		Token:   uuid.NewString(),
	}
	log.Info().Str("module", "app.spawner").Int32("lobby", int32(l.ID())).
		Str("address", access.Address).Int("port", access.Port).Msg("game session provisioned")
	return access, nil
}
