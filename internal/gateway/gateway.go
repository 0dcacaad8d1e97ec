// Package gateway assembles the emulator's single HTTP process: router,
// transport upgrade, startup/shutdown ordering.
package gateway

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	gws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/slackemu/emulator/internal/config"
	"github.com/slackemu/emulator/internal/health"
	"github.com/slackemu/emulator/internal/metrics"
	"github.com/slackemu/emulator/internal/requestid"
	"github.com/slackemu/emulator/internal/socketbus"
	"github.com/slackemu/emulator/internal/state"
	"github.com/slackemu/emulator/internal/store"
	"github.com/slackemu/emulator/internal/webapi"
)

// Gateway owns the Fiber app and every long-lived dependency it serves.
type Gateway struct {
	app     *fiber.App
	logger  zerolog.Logger
	cfg     *config.Config
	store   *store.Store
	state   *state.State
	bus     *socketbus.Bus
	metrics *metrics.Metrics

	heartbeatStop chan struct{}
}

// New wires persistence, state, the socket bus, and every HTTP route, in
// the order spec.md's gateway section requires. It does not start
// listening or accepting connections.
func New(cfg *config.Config, logger zerolog.Logger) (*Gateway, error) {
	m := metrics.New()
	checker := health.NewChecker(logger)

	var st *store.Store
	if cfg.PersistenceEnabled() {
		var err error
		st, err = store.New(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		checker.Register("store", func(ctx context.Context) health.Status {
			if err := st.Ping(); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
	}

	sm := state.New(logger, st)
	if st != nil {
		if err := sm.LoadFromStore(); err != nil {
			logger.Warn().Err(err).Msg("hydrate state from persistence failed")
		}
	}
	if err := sm.SeedFromFile(cfg.SeedFile); err != nil {
		logger.Warn().Err(err).Msg("load seed file failed")
	}

	bus := socketbus.New(logger, sm, m)
	checker.Register("socketbus", func(ctx context.Context) health.Status {
		return health.StatusOK
	})

	srv := webapi.New(logger, sm, bus, m)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	g := &Gateway{
		app:           app,
		logger:        logger.With().Str("component", "gateway").Logger(),
		cfg:           cfg,
		store:         st,
		state:         sm,
		bus:           bus,
		metrics:       m,
		heartbeatStop: make(chan struct{}),
	}

	g.setupMiddleware()
	g.setupRoutes(srv, checker)

	return g, nil
}

func (g *Gateway) setupMiddleware() {
	g.app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	g.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	g.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	g.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		g.metrics.RecordHTTPRequest(c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	})
}

// setupRoutes installs every route in the source order spec.md's gateway
// section names: health, transport upgrade, simulator SSE/control
// endpoints, platform endpoints under /api/ plus the dotted-path
// compatibility shims.
func (g *Gateway) setupRoutes(srv *webapi.Server, checker *health.Checker) {
	g.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(checker.Readiness(c.Context()))
	})
	g.app.Get("/metrics", adaptor.HTTPHandler(g.metrics.Handler()))

	g.app.Use("/ws/socket-mode", func(c *fiber.Ctx) error {
		if gws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	g.app.Get("/ws/socket-mode", gws.New(func(conn *gws.Conn) {
		g.bus.HandleConnection(conn)
	}))

	srv.RegisterSimulator(g.app)
	srv.RegisterPlatform(g.app)
}

// Listen starts the heartbeat sweep and blocks serving HTTP on cfg.Port.
func (g *Gateway) Listen() error {
	go g.bus.RunHeartbeat(g.heartbeatStop)
	addr := ":" + strconv.Itoa(g.cfg.Port)
	g.logger.Info().Str("addr", addr).Msg("gateway listening")
	return g.app.Listen(addr)
}

// Shutdown stops the heartbeat, drains HTTP, then closes persistence —
// the reverse of startup order.
func (g *Gateway) Shutdown(ctx context.Context) error {
	close(g.heartbeatStop)

	done := make(chan error, 1)
	go func() { done <- g.app.ShutdownWithContext(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if g.store != nil {
		if closeErr := g.store.Close(); closeErr != nil {
			g.logger.Warn().Err(closeErr).Msg("close persistence failed")
		}
	}
	return err
}
