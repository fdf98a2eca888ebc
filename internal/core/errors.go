package core

import "errors"

var (
	ErrUnauthorized      = errors.New("insufficient permission")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnknownFactory    = errors.New("unknown lobby factory")
	ErrLobbyNotFound     = errors.New("lobby not found")
	ErrLobbyFull         = errors.New("lobby is full")
	ErrLobbyStarted      = errors.New("lobby already started")
	ErrLobbyNotStarted   = errors.New("lobby game is not in progress")
	ErrAlreadyInLobby    = errors.New("already in a lobby")
	ErrAlreadyMember     = errors.New("already a member of this lobby")
	ErrNotInLobby        = errors.New("not in a lobby")
	ErrMemberNotFound    = errors.New("member not found")
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamFull          = errors.New("team is full")
	ErrTeamJoinRefused   = errors.New("cannot join team")
	ErrNotLobbyOwner     = errors.New("only the lobby owner can do this")
	ErrNotAllReady       = errors.New("not all players are ready")
	ErrIDCollision       = errors.New("lobby id collision")
	ErrProvisionFailed   = errors.New("game session provisioning failed")
	ErrPropertyRejected  = errors.New("property rejected")
	ErrBackpressure      = errors.New("backpressure")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrJoinedLimitExceed = errors.New("joined lobbies limit reached")
)

// Status is the wire-level outcome of one request.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusFailed       Status = "failed"
	StatusUnauthorized Status = "unauthorized"
	StatusError        Status = "error"
)

// StatusOf classifies a handler error into a response status. Every handler
// converts a failed delegated call through here; nothing escapes unmapped.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotLobbyOwner):
		return StatusUnauthorized
	case errors.Is(err, ErrIDCollision), errors.Is(err, ErrProvisionFailed):
		return StatusError
	default:
		return StatusFailed
	}
}
