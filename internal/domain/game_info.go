package domain

// GameInfoType distinguishes entries in the public discovery feed.
// Lobbies are the only source today; rooms may join the feed later.
type GameInfoType string

const GameInfoLobby GameInfoType = "Lobby"

// GameInfo is one entry of the public game-discovery feed. It is a rendered
// snapshot, never a live view into lobby internals.
type GameInfo struct {
	ID            LobbyID           `json:"id"`
	Type          GameInfoType      `json:"type"`
	Name          string            `json:"name"`
	Address       string            `json:"address"`
	MaxPlayers    int               `json:"maxPlayers"`
	OnlinePlayers int               `json:"onlinePlayers"`
	Properties    map[string]string `json:"properties"`
}

// GameAccess is what a peer needs to reach a provisioned game session.
type GameAccess struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Token   string `json:"token,omitempty"`
}

// GameFilters narrows the discovery feed. Zero values mean "no filter".
type GameFilters struct {
	Name        string
	HideFull    bool
	HideStarted bool
}
