package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/karim-dev-coder/master-server-toolkit/internal/adapters/ws"
	"github.com/karim-dev-coder/master-server-toolkit/internal/app"
	"github.com/karim-dev-coder/master-server-toolkit/internal/config"
	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// ClientTokenMiddleware gives every client a stable peer identity cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, service *app.LobbyService) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LobbySessions", store))
	r.Use(ClientTokenMiddleware())

	ctl := ws.NewLobbyWSController(service, cfg.ReadLimit, cfg.PingPeriod)

	api := r.Group("/api")
	api.GET("/ws/lobbies", func(c *gin.Context) {
		ctl.HandleLobby(ctx, c)
	})
	api.GET("/games", listGames(service))
	api.GET("/games/:id", getGame(service))

	return r
}

// restPeer satisfies core.Peer for pull-only REST callers; it never receives
// pushed frames.
type restPeer struct {
	info *domain.PeerInfo
}

func (p *restPeer) ID() domain.PeerID        { return p.info.ID }
func (p *restPeer) Info() *domain.PeerInfo   { return p.info }
func (p *restPeer) TrySend(core.Frame) error { return core.ErrConnectionClosed }
func (p *restPeer) Close()                   {}

func requestPeer(c *gin.Context) core.Peer {
	return &restPeer{info: &domain.PeerInfo{
		ID:       domain.PeerID(c.GetString("client_token")),
		Username: "guest",
	}}
}

func listGames(service *app.LobbyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := domain.GameFilters{
			Name:        c.Query("name"),
			HideFull:    c.Query("hideFull") == "1",
			HideStarted: c.Query("hideStarted") == "1",
		}
		c.JSON(http.StatusOK, service.PublicGames(requestPeer(c), filters))
	}
}

func getGame(service *app.LobbyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lobby id"})
			return
		}
		data, err := service.LobbyInfo(domain.LobbyID(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, data)
	}
}
