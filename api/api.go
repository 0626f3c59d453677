package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/mediguideco/mediguide/pkg/auth"
	"github.com/mediguideco/mediguide/pkg/eventstream"
	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/rag"
	"github.com/mediguideco/mediguide/pkg/storage"
)

// Answerer is the query engine surface the server needs. A nil Answerer is
// legal; the server then degrades /chat to 503 instead of failing startup.
type Answerer interface {
	Answer(ctx context.Context, query string, history ...llm.Message) (*rag.Answer, error)
}

// Server is the API server for the grounded Q&A service.
type Server struct {
	config    Config
	engine    Answerer
	storer    storage.Driver
	issuer    *auth.TokenIssuer
	publisher eventstream.Publisher
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The engine, storer, and publisher are
// injected to allow sharing with other components (the MCP server, the CLI's
// in-process engine).
func NewServer(
	config Config,
	engine Answerer,
	storer storage.Driver,
	issuer *auth.TokenIssuer,
	publisher eventstream.Publisher,
	logger *slog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		engine:    engine,
		storer:    storer,
		issuer:    issuer,
		publisher: publisher,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/register", s.handleRegister)
	app.Post("/token", s.handleToken)
	app.Get("/conversations", s.requireAuth, s.handleListConversations)
	app.Get("/conversations/:id", s.requireAuth, s.handleGetConversation)
	app.Post("/chat", s.requireAuth, s.handleChat)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
