package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/karim-dev-coder/master-server-toolkit/internal/app"
	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

// LobbyWSController serves the lobby protocol over WebSocket: typed JSON
// request envelopes in, exactly one response per request out (chat excepted).
type LobbyWSController struct {
	Service    *app.LobbyService
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewLobbyWSController(service *app.LobbyService, readLimit int64, pingPeriod time.Duration) *LobbyWSController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &LobbyWSController{Service: service, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// envelope is one inbound request frame.
type envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// response is the single reply to one request.
type response struct {
	Type    string      `json:"type"`
	Request string      `json:"request"`
	Status  core.Status `json:"status"`
	Reason  string      `json:"reason,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleLobby upgrades the request and runs the peer's read/write pumps.
// Identity comes from the client-token middleware; permission assignment is
// established before this handler runs.
func (ctl *LobbyWSController) HandleLobby(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	username := c.Query("name")
	if username == "" {
		username = "guest"
	}
	info := &domain.PeerInfo{
		ID:       domain.PeerID(token),
		Username: username,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		conn.SetReadLimit(ctl.ReadLimit)
	}

	peer := newWSPeer(info, conn)
	log.Info().Str("module", "adapters.ws").Str("peer", string(peer.ID())).
		Str("username", username).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, peer)
	go ctl.readPump(ctx, cancel, peer)
}

func (ctl *LobbyWSController) respond(peer *wsPeer, request string, payload any, err error) {
	resp := response{
		Type:    "response",
		Request: request,
		Status:  core.StatusOf(err),
		Payload: payload,
	}
	if err != nil {
		resp.Reason = err.Error()
	}
	ctl.sendJSON(peer, resp)
}

func (ctl *LobbyWSController) sendJSON(peer *wsPeer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("sendJSON marshal")
		return
	}
	if err := peer.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").
			Str("peer", string(peer.ID())).Msg("response dropped")
	}
}
