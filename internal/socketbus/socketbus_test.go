package socketbus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/state"
)

func newTestBus(t *testing.T) (*Bus, *state.State) {
	t.Helper()
	st := state.New(zerolog.Nop(), nil)
	return New(zerolog.Nop(), st, nil), st
}

func (b *Bus) addFakeConnection(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connections[id] = &Connection{ID: id, ConnectedAt: time.Now(), lastPong: time.Now()}
	b.order = append(b.order, id)
}

func TestBus_GetUnassociatedConnectionID_OldestFirst(t *testing.T) {
	b, _ := newTestBus(t)
	b.addFakeConnection("c1")
	b.addFakeConnection("c2")

	id, err := b.GetUnassociatedConnectionID()
	require.NoError(t, err)
	assert.Equal(t, "c1", id)
}

func TestBus_ClaimSet_PreventsDoubleClaim(t *testing.T) {
	b, _ := newTestBus(t)
	b.addFakeConnection("c1")

	id1, err := b.GetUnassociatedConnectionID()
	require.NoError(t, err)
	assert.Equal(t, "c1", id1)

	_, err = b.GetUnassociatedConnectionID()
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.NoWebsocketConn, apiErr.Kind)

	b.ReleaseConnectionClaim(id1)
	id2, err := b.GetUnassociatedConnectionID()
	require.NoError(t, err)
	assert.Equal(t, "c1", id2)

	b.ConfirmConnectionClaim(id2)
}

func TestBus_NoConnections_ReturnsNoWebsocketConn(t *testing.T) {
	b, _ := newTestBus(t)
	_, err := b.GetUnassociatedConnectionID()
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.NoWebsocketConn, apiErr.Kind)
}

func TestBus_Connected_ReflectsRegistry(t *testing.T) {
	b, _ := newTestBus(t)
	assert.Equal(t, 0, b.Connected())
	b.addFakeConnection("c1")
	assert.Equal(t, 1, b.Connected())
}
