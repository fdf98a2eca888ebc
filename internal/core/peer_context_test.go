package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karim-dev-coder/master-server-toolkit/internal/domain"
)

func TestPeerContext_SingleMembershipPolicy(t *testing.T) {
	pc := NewPeerContext(newFakePeer("alice"), 1)

	require.NoError(t, pc.attach(0))
	require.ErrorIs(t, pc.attach(1), ErrJoinedLimitExceed)

	current, ok := pc.CurrentLobby()
	require.True(t, ok)
	assert.Equal(t, domain.LobbyID(0), current)
}

func TestPeerContext_AttachSameLobbyTwice(t *testing.T) {
	pc := NewPeerContext(newFakePeer("alice"), 2)
	require.NoError(t, pc.attach(3))
	require.ErrorIs(t, pc.attach(3), ErrAlreadyMember)
}

func TestPeerContext_DetachIdempotent(t *testing.T) {
	pc := NewPeerContext(newFakePeer("alice"), 2)
	require.NoError(t, pc.attach(3))
	require.NoError(t, pc.attach(4))

	pc.detach(3)
	pc.detach(3)
	pc.detach(99)

	assert.Equal(t, []domain.LobbyID{4}, pc.JoinedLobbies())
}

func TestPeerContext_LimitAboveOne(t *testing.T) {
	pc := NewPeerContext(newFakePeer("alice"), 2)
	require.NoError(t, pc.attach(1))
	require.NoError(t, pc.attach(2))
	require.ErrorIs(t, pc.attach(3), ErrJoinedLimitExceed)

	pc.detach(1)
	require.NoError(t, pc.attach(3))
}
