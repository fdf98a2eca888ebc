package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// PeerID identifies one connected client across its requests.
type PeerID string

// PeerInfo is the identity meta the coordination service keeps per peer.
// Permission assignment itself happens before any lobby handler runs.
type PeerInfo struct {
	ID         PeerID `json:"id"`
	Username   string `json:"username"`
	Permission int    `json:"permission"`
}

// NewPeerInfo is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewPeerInfo(username string) (*PeerInfo, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &PeerInfo{ID: PeerID(uuid.NewString()), Username: username}, nil
}

func (p *PeerInfo) SetUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	p.Username = username
	return nil
}
