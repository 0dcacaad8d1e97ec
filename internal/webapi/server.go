// Package webapi implements the platform surface (Slack-compatible REST
// API) and the simulator control surface consumed by the emulator's UI.
package webapi

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slackemu/emulator/internal/metrics"
	"github.com/slackemu/emulator/internal/socketbus"
	"github.com/slackemu/emulator/internal/state"
)

// Server holds the dependencies shared by every handler.
type Server struct {
	logger    zerolog.Logger
	state     *state.State
	bus       *socketbus.Bus
	metrics   *metrics.Metrics
	ticketKey []byte
	logs      *logHub
}

// New creates a Server. ticketKey signs the short-lived apps.connections.open
// ticket; a fresh one is minted per process since tickets never need to
// survive a restart.
func New(logger zerolog.Logger, st *state.State, bus *socketbus.Bus, m *metrics.Metrics) *Server {
	return &Server{
		logger:    logger.With().Str("component", "webapi").Logger(),
		state:     st,
		bus:       bus,
		metrics:   m,
		ticketKey: []byte(uuid.NewString()),
		logs:      newLogHub(),
	}
}

type connectionTicketClaims struct {
	jwt.RegisteredClaims
}

func (s *Server) mintTicket() (string, error) {
	claims := connectionTicketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID: uuid.NewString(),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.ticketKey)
}
