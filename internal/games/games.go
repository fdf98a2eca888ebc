// Package games holds the lobby variants this server ships with. Each
// variant is a factory registered under its id; game-specific rules live in
// the validation hooks, the coordinator never sees them.
package games

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/karim-dev-coder/master-server-toolkit/internal/app"
	"github.com/karim-dev-coder/master-server-toolkit/internal/core"
	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

const (
	Deathmatch     domain.FactoryID = "deathmatch"
	TeamDeathmatch domain.FactoryID = "team_deathmatch"

	chatLimit    = 10
	chatInterval = 10 * time.Second
)

// privatePrefix marks lobby properties hidden from the discovery feed.
const privatePrefix = "private_"

// numericKeys are lobby properties that must hold integers.
var numericKeys = map[string]bool{
	"roundsX":   true,
	"fragLimit": true,
	"timeLimit": true,
}

// RegisterAll wires every shipped variant into the service's factory registry.
func RegisterAll(s *app.LobbyService) {
	s.RegisterFactory(Deathmatch, DeathmatchFactory(s.Spawner()))
	s.RegisterFactory(TeamDeathmatch, TeamDeathmatchFactory(s.Spawner()))
}

// DeathmatchFactory builds free-for-all lobbies without teams.
func DeathmatchFactory(spawner core.Spawner) core.LobbyFactory {
	return func(opts domain.LobbyOptions, owner core.Peer) (core.Lobby, error) {
		name, err := lobbyName(opts, owner)
		if err != nil {
			return nil, err
		}
		settings := core.LobbySettings{
			Name:              name,
			MaxPlayers:        opts.MaxPlayers,
			PropertyValidator: validateNumericProps,
			PublicFilter:      hidePrivateProps,
			ChatLimit:         chatLimit,
			ChatInterval:      chatInterval,
		}
		return core.NewLobby(settings, owner, spawner, opts.Properties), nil
	}
}

// TeamDeathmatchFactory builds two-team lobbies. Start requires every member
// ready; team sizes cap at half the lobby.
func TeamDeathmatchFactory(spawner core.Spawner) core.LobbyFactory {
	return func(opts domain.LobbyOptions, owner core.Peer) (core.Lobby, error) {
		name, err := lobbyName(opts, owner)
		if err != nil {
			return nil, err
		}
		maxPlayers := opts.MaxPlayers
		if maxPlayers <= 0 {
			maxPlayers = domain.DefaultMaxPlayers
		}
		perTeam := (maxPlayers + 1) / 2
		settings := core.LobbySettings{
			Name:       name,
			MaxPlayers: maxPlayers,
			Teams: []core.TeamConfig{
				{Name: "red", MaxPlayers: perTeam},
				{Name: "blue", MaxPlayers: perTeam},
			},
			RequireAllReady:   true,
			PropertyValidator: validateNumericProps,
			PublicFilter:      hidePrivateProps,
			ChatLimit:         chatLimit,
			ChatInterval:      chatInterval,
		}
		return core.NewLobby(settings, owner, spawner, opts.Properties), nil
	}
}

func lobbyName(opts domain.LobbyOptions, owner core.Peer) (string, error) {
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s's game", owner.Info().Username)
	}
	if err := domain.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

func validateNumericProps(key, value string) error {
	if !numericKeys[key] {
		return nil
	}
	if _, err := strconv.Atoi(value); err != nil {
		return fmt.Errorf("%q must be numeric", key)
	}
	return nil
}

func hidePrivateProps(props map[string]string) map[string]string {
	for k := range props {
		if strings.HasPrefix(k, privatePrefix) {
			delete(props, k)
		}
	}
	return props
}
