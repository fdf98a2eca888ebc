// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"strconv"
)

type (
	// LobbyID is assigned by the lobby registry, strictly increasing from 0.
	LobbyID int32
	// FactoryID selects a lobby implementation in the factory registry.
	FactoryID string
	// TeamName identifies a team inside one lobby.
	TeamName string
)

// LobbyState is the coarse lifecycle of a lobby.
type LobbyState int32

const (
	LobbyForming LobbyState = iota
	LobbyStarting
	LobbyInProgress
	LobbyDestroyed
)

func (s LobbyState) String() string {
	switch s {
	case LobbyForming:
		return "forming"
	case LobbyStarting:
		return "starting"
	case LobbyInProgress:
		return "in_progress"
	case LobbyDestroyed:
		return "destroyed"
	}
	return "unknown"
}

const (
	MaxLobbyNameLen   = 64
	DefaultMaxPlayers = 8
)

var (
	ErrLobbyNameEmpty   = errors.New("lobby name empty")
	ErrLobbyNameTooLong = errors.New("lobby name too long")
)

// LobbyOptions are the creation options a client sends with a create request.
// Unknown keys are carried through as initial lobby properties.
type LobbyOptions struct {
	Name       string
	MaxPlayers int
	Properties map[string]string
}

// OptionsFromMap lifts the wire-level creation options into LobbyOptions.
// "name" and "maxPlayers" are reserved keys; everything else becomes an
// initial lobby property.
func OptionsFromMap(m map[string]string) LobbyOptions {
	opts := LobbyOptions{Properties: make(map[string]string, len(m))}
	for k, v := range m {
		switch k {
		case "name":
			opts.Name = v
		case "maxPlayers":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				opts.MaxPlayers = n
			}
		default:
			opts.Properties[k] = v
		}
	}
	return opts
}

// ValidateName keeps adapters from registering lobbies with unusable names.
func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrLobbyNameEmpty
	}
	if len(name) > MaxLobbyNameLen {
		return ErrLobbyNameTooLong
	}
	return nil
}
