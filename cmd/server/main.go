package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/karim-dev-coder/master-server-toolkit/internal/adapters/http"
	"github.com/karim-dev-coder/master-server-toolkit/internal/app"
	"github.com/karim-dev-coder/master-server-toolkit/internal/config"
	"github.com/karim-dev-coder/master-server-toolkit/internal/games"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	spawner := app.NewStaticSpawner(cfg.Spawner.Host, cfg.Spawner.PortBase)
	service := app.NewLobbyService(app.Settings{
		CreatePermissionLevel:     cfg.Lobbies.CreatePermissionLevel,
		DontAllowCreatingIfJoined: cfg.Lobbies.DontAllowCreatingIfJoined,
		JoinedLimit:               cfg.Lobbies.JoinedLimit,
		StartTimeout:              cfg.Lobbies.StartTimeout,
	}, spawner, app.SimplePolicy{})
	games.RegisterAll(service)

	r := router.SetupRouter(ctx, cfg, service)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("lobby server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	service.Stop()
	log.Info().Msg("Server exited gracefully")
}
