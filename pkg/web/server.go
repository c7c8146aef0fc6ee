// Package web serves the telephony webhooks and the call dashboard API.
package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-callflow/pkg/callflow"
	"github.com/teslashibe/go-callflow/pkg/hub"
	"github.com/teslashibe/go-callflow/pkg/session"
)

// Version is reported by /health.
var Version = "1.0.0"

// Calls is the call controller as seen by the webhooks.
type Calls interface {
	Begin(ctx context.Context, callID, caller string) (*callflow.Result, error)
	HandleTurn(ctx context.Context, req callflow.TurnRequest) (*callflow.Result, error)
	Session(ctx context.Context, callID string) (*session.Session, bool, error)
	Stats() callflow.Stats
}

// Authorizer runs the Google consent flow for transcript export.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	Connected() bool
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config configures the server.
type Config struct {
	// TurnTimeout bounds one webhook turn.
	TurnTimeout time.Duration

	// APIKey guards call data: /api/calls as a bearer token and /ws as the
	// token query parameter. Empty rejects every request to them.
	APIKey string

	// Inference, when set, is checked by /health.
	Inference HealthChecker

	// Debug enables request logging.
	Debug bool

	Logger *slog.Logger
}

// Server is the webhook server.
type Server struct {
	app    *fiber.App
	calls  Calls
	hub    *hub.Hub
	docs   Authorizer
	config Config
	logger *slog.Logger
}

// NewServer creates the server. docs may be nil when export is disabled.
func NewServer(calls Calls, h *hub.Hub, docs Authorizer, cfg Config) *Server {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 14 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		calls:  calls,
		hub:    h,
		docs:   docs,
		config: cfg,
		logger: cfg.Logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-callflow",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	// Telephony webhooks
	app.Post("/voice", s.handleVoice)
	app.Post("/handle-response", s.handleResponse)

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/calls/:id", s.requireKey("header:"+fiber.HeaderAuthorization), s.handleGetCall)
	api.Get("/google/auth", s.handleGoogleAuth)
	api.Get("/google/callback", s.handleGoogleCallback)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/calls", s.requireKey("query:token"), websocket.New(s.handleCallsWS))

	s.app = app
	return s
}

// requireKey checks the configured API key at lookup.
func (s *Server) requireKey(lookup string) fiber.Handler {
	scheme := ""
	if lookup == "header:"+fiber.HeaderAuthorization {
		scheme = "Bearer"
	}
	return keyauth.New(keyauth.Config{
		KeyLookup:  lookup,
		AuthScheme: scheme,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if s.config.APIKey == "" ||
				subtle.ConstantTimeCompare([]byte(key), []byte(s.config.APIKey)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
	})
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight turns until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// EventFeed adapts the hub into a call observer. Broadcasting never blocks.
func EventFeed(h *hub.Hub) callflow.Observer {
	return callflow.ObserverFunc(func(e callflow.Event) {
		if err := h.BroadcastJSON(e.CallID, e); err != nil {
			slog.Default().Warn("failed to encode call event", "error", err)
		}
	})
}

// metricsText renders stats in the Prometheus text format.
func metricsText(st callflow.Stats, subscribers int, dropped int64) string {
	return fmt.Sprintf(`# HELP callflow_calls_started Calls begun
# TYPE callflow_calls_started counter
callflow_calls_started %d

# HELP callflow_calls_completed Calls that reached the closing line
# TYPE callflow_calls_completed counter
callflow_calls_completed %d

# HELP callflow_turns_answered Turns answered successfully
# TYPE callflow_turns_answered counter
callflow_turns_answered %d

# HELP callflow_replayed Webhooks for calls already complete
# TYPE callflow_replayed counter
callflow_replayed %d

# HELP callflow_turn_failures Turn-local failures by kind
# TYPE callflow_turn_failures counter
callflow_turn_failures{kind="missing_input"} %d
callflow_turn_failures{kind="retrieval"} %d
callflow_turn_failures{kind="transcription"} %d
callflow_turn_failures{kind="generation"} %d
callflow_turn_failures{kind="store"} %d
callflow_turn_failures{kind="busy"} %d

# HELP callflow_event_subscribers Live event subscribers
# TYPE callflow_event_subscribers gauge
callflow_event_subscribers %d

# HELP callflow_events_dropped Events dropped for a full queue
# TYPE callflow_events_dropped counter
callflow_events_dropped %d
`,
		st.CallsStarted, st.CallsCompleted, st.TurnsAnswered, st.Replayed,
		st.MissingInputs, st.RetrievalFailures, st.TranscriptionFailures,
		st.GenerationFailures, st.StoreFailures, st.BusyTurns,
		subscribers, dropped)
}
