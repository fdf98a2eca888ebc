package ws

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/karim-dev-coder/master-server-toolkit/internal/app"
	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

type createLobbyRequest struct {
	Factory string            `mapstructure:"factory"`
	Options map[string]string `mapstructure:"options"`
}

type lobbyIDRequest struct {
	LobbyID int32 `mapstructure:"lobbyId"`
}

type setLobbyPropertiesRequest struct {
	LobbyID    int32          `mapstructure:"lobbyId"`
	Properties []app.Property `mapstructure:"properties"`
}

type setMyPropertiesRequest struct {
	Properties []app.Property `mapstructure:"properties"`
}

type joinTeamRequest struct {
	Team string `mapstructure:"team"`
}

type chatRequest struct {
	Message string `mapstructure:"message"`
}

type setReadyRequest struct {
	IsReady int `mapstructure:"isReady"`
}

type memberDataRequest struct {
	LobbyID int32  `mapstructure:"lobbyId"`
	PeerID  string `mapstructure:"peerId"`
}

type publicGamesRequest struct {
	Name        string `mapstructure:"name"`
	HideFull    bool   `mapstructure:"hideFull"`
	HideStarted bool   `mapstructure:"hideStarted"`
}

func decode(env envelope, out any) error {
	if err := mapstructure.Decode(env.Payload, out); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidRequest, err)
	}
	return nil
}

func (ctl *LobbyWSController) handleCreateLobby(p *wsPeer, env envelope) {
	var req createLobbyRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	id, err := ctl.Service.CreateLobby(p, domain.FactoryID(req.Factory), req.Options)
	if err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	ctl.respond(p, env.Type, map[string]any{"lobbyId": id}, nil)
}

func (ctl *LobbyWSController) handleJoinLobby(p *wsPeer, env envelope) {
	var req lobbyIDRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	data, err := ctl.Service.JoinLobby(p, domain.LobbyID(req.LobbyID))
	if err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	ctl.respond(p, env.Type, data, nil)
}

func (ctl *LobbyWSController) handleLeaveLobby(p *wsPeer, env envelope) {
	var req lobbyIDRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	ctl.Service.LeaveLobby(p, domain.LobbyID(req.LobbyID))
	ctl.respond(p, env.Type, nil, nil)
}

func (ctl *LobbyWSController) handleSetLobbyProperties(p *wsPeer, env envelope) {
	var req setLobbyPropertiesRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	err := ctl.Service.SetLobbyProperties(p, domain.LobbyID(req.LobbyID), req.Properties)
	ctl.respond(p, env.Type, nil, err)
}

func (ctl *LobbyWSController) handleSetMyProperties(p *wsPeer, env envelope) {
	var req setMyPropertiesRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	err := ctl.Service.SetMyProperties(p, req.Properties)
	ctl.respond(p, env.Type, nil, err)
}

func (ctl *LobbyWSController) handleJoinTeam(p *wsPeer, env envelope) {
	var req joinTeamRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	err := ctl.Service.JoinTeam(p, domain.TeamName(req.Team))
	ctl.respond(p, env.Type, nil, err)
}

// Chat deliberately has no response path: invalid callers are dropped
// silently, valid messages reach members as a lobby_chat broadcast.
func (ctl *LobbyWSController) handleSendChatMessage(p *wsPeer, env envelope) {
	var req chatRequest
	if err := decode(env, &req); err != nil {
		return
	}
	ctl.Service.SendChatMessage(p, []byte(req.Message))
}

func (ctl *LobbyWSController) handleSetReady(p *wsPeer, env envelope) {
	var req setReadyRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	err := ctl.Service.SetReady(p, req.IsReady != 0)
	ctl.respond(p, env.Type, nil, err)
}

func (ctl *LobbyWSController) handleStartGame(ctx context.Context, p *wsPeer, env envelope) {
	err := ctl.Service.StartGame(ctx, p)
	ctl.respond(p, env.Type, nil, err)
}

func (ctl *LobbyWSController) handleRoomAccess(p *wsPeer, env envelope) {
	access, err := ctl.Service.RoomAccess(p)
	if err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	ctl.respond(p, env.Type, access, nil)
}

func (ctl *LobbyWSController) handleMemberData(p *wsPeer, env envelope) {
	var req memberDataRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	data, err := ctl.Service.MemberData(domain.LobbyID(req.LobbyID), domain.PeerID(req.PeerID))
	if err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	ctl.respond(p, env.Type, data, nil)
}

func (ctl *LobbyWSController) handleLobbyInfo(p *wsPeer, env envelope) {
	var req lobbyIDRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	data, err := ctl.Service.LobbyInfo(domain.LobbyID(req.LobbyID))
	if err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	ctl.respond(p, env.Type, data, nil)
}

func (ctl *LobbyWSController) handlePublicGames(p *wsPeer, env envelope) {
	var req publicGamesRequest
	if err := decode(env, &req); err != nil {
		ctl.respond(p, env.Type, nil, err)
		return
	}
	games := ctl.Service.PublicGames(p, domain.GameFilters{
		Name:        req.Name,
		HideFull:    req.HideFull,
		HideStarted: req.HideStarted,
	})
	ctl.respond(p, env.Type, games, nil)
}
