package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *LobbyWSController) writePump(ctx context.Context, p *wsPeer) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-p.send:
			if !ok {
				return
			}
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *LobbyWSController) readPump(ctx context.Context, cancel context.CancelFunc, p *wsPeer) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("peer", string(p.ID())).Msg("readPump closing")
		ctl.Service.OnDisconnect(p)
		cancel()
		p.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := p.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "adapters.ws").
						Str("peer", string(p.ID())).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(ctx, p, data)
		}
	}
}

func (ctl *LobbyWSController) dispatch(ctx context.Context, p *wsPeer, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("bad json envelope")
		return
	}

	switch env.Type {
	case "CreateLobby":
		ctl.handleCreateLobby(p, env)
	case "JoinLobby":
		ctl.handleJoinLobby(p, env)
	case "LeaveLobby":
		ctl.handleLeaveLobby(p, env)
	case "SetLobbyProperties":
		ctl.handleSetLobbyProperties(p, env)
	case "SetMyLobbyProperties":
		ctl.handleSetMyProperties(p, env)
	case "JoinLobbyTeam":
		ctl.handleJoinTeam(p, env)
	case "LobbySendChatMessage":
		ctl.handleSendChatMessage(p, env)
	case "LobbySetReady":
		ctl.handleSetReady(p, env)
	case "LobbyStartGame":
		ctl.handleStartGame(ctx, p, env)
	case "GetLobbyRoomAccess":
		ctl.handleRoomAccess(p, env)
	case "GetLobbyMemberData":
		ctl.handleMemberData(p, env)
	case "GetLobbyInfo":
		ctl.handleLobbyInfo(p, env)
	case "GetPublicGames":
		ctl.handlePublicGames(p, env)
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown request")
	}
}
