package socketbus

import "github.com/slackemu/emulator/internal/apierr"

// GetUnassociatedConnectionID atomically picks the oldest connection that
// has no associated bot and is not already claimed, and adds it to the
// claim set. This is the invariant that prevents two concurrent
// registrations from racing for the same socket.
func (b *Bus) GetUnassociatedConnectionID() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.order {
		if b.claimed[id] {
			continue
		}
		if _, ok := b.state.GetBotByConnection(id); ok {
			continue
		}
		if _, exists := b.connections[id]; !exists {
			continue
		}
		b.claimed[id] = true
		return id, nil
	}
	return "", apierr.New(apierr.NoWebsocketConn, "no claimable websocket connection")
}

// ConfirmConnectionClaim removes a connection from the claim set after a
// successful registration.
func (b *Bus) ConfirmConnectionClaim(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.claimed, connID)
}

// ReleaseConnectionClaim removes a connection from the claim set after a
// failed registration, making it eligible for claiming again.
func (b *Bus) ReleaseConnectionClaim(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.claimed, connID)
}
