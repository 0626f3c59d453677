package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mediguideco/mediguide/pkg/auth"
	"github.com/mediguideco/mediguide/pkg/eventstream"
	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/rag"
	"github.com/mediguideco/mediguide/pkg/storage"
)

// titleMaxRunes caps conversation titles derived from the first prompt.
const titleMaxRunes = 50

// ErrorResponse is the error body for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRequest is the body for POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the body for a successful POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ConversationSummary is one entry in the GET /conversations listing.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationResponse is the body for GET /conversations/:id.
type ConversationResponse struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Messages []ConversationMessage `json:"messages"`
}

// ConversationMessage is one turn in a conversation response.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body for POST /chat.
type ChatRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the body for a successful POST /chat.
type ChatResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id"`
	Sources        []string `json:"sources,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleRegister creates a new user account.
func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "username and password are required"})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to register user"})
	}

	err = s.storer.CreateUser(c.Context(), storage.User{
		Username:     req.Username,
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrExists) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "username already registered"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to register user"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"username": req.Username})
}

// handleToken exchanges form credentials for a bearer token.
func (s *Server) handleToken(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "username and password are required"})
	}

	user, err := s.storer.GetUser(c.Context(), username)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, password)) {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "incorrect username or password"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to issue token"})
	}

	token, err := s.issuer.Issue(username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to issue token"})
	}

	return c.JSON(TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// requireAuth verifies the bearer token and stores the subject username in
// the request locals.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "missing bearer token"})
	}

	username, err := s.issuer.Verify(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid or expired token"})
	}

	c.Locals("username", username)
	return c.Next()
}

// handleListConversations returns the authenticated user's conversations.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	username := c.Locals("username").(string)

	convs, err := s.storer.ListConversations(c.Context(), username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list conversations"})
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, ConversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
		})
	}
	return c.JSON(summaries)
}

// handleGetConversation returns one conversation with its messages.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	username := c.Locals("username").(string)
	id := c.Params("id")

	conv, msgs, err := s.storer.GetConversation(c.Context(), username, id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load conversation"})
	}

	resp := ConversationResponse{
		ID:       conv.ID,
		Title:    conv.Title,
		Messages: make([]ConversationMessage, 0, len(msgs)),
	}
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, ConversationMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	return c.JSON(resp)
}

// handleChat answers a question, persisting both turns of the exchange.
func (s *Server) handleChat(c *fiber.Ctx) error {
	username := c.Locals("username").(string)

	if s.engine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "model unavailable"})
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	ctx := c.Context()
	start := time.Now()

	// Resolve the conversation first so history can be replayed to the model.
	var conv *storage.Conversation
	var history []llm.Message
	if req.ConversationID != "" {
		existing, msgs, err := s.storer.GetConversation(ctx, username, req.ConversationID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load conversation"})
		}
		conv = existing
		for _, msg := range msgs {
			history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
		}
	}

	answer, err := s.engine.Answer(ctx, req.Prompt, history...)
	switch {
	case errors.Is(err, rag.ErrInvalidQuery):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "prompt must not be empty"})
	case errors.Is(err, llm.ErrModelUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "model unavailable"})
	case err != nil:
		s.logger.Error("chat answer failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "failed to generate answer"})
	}

	if conv == nil {
		conv, err = s.storer.CreateConversation(ctx, username, titleFromPrompt(req.Prompt))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create conversation"})
		}
	}

	if err := s.storer.AppendMessage(ctx, conv.ID, storage.Message{Role: llm.RoleUser, Content: req.Prompt}); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save conversation"})
	}
	if err := s.storer.AppendMessage(ctx, conv.ID, storage.Message{Role: llm.RoleAssistant, Content: answer.Text}); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save conversation"})
	}

	sources := make([]string, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, src.Document)
	}

	// Best-effort: a broken event stream must not fail the chat turn.
	event := &eventstream.AnswerRecordedEvent{
		SchemaVersion:  eventstream.SchemaVersionV1,
		EventType:      eventstream.EventTypeAnswerRecorded,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now(),
		Username:       username,
		ConversationID: conv.ID,
		Query:          req.Prompt,
		Answer:         answer.Text,
		Sources:        sources,
		DurationMs:     time.Since(start).Milliseconds(),
	}
	if err := s.publisher.PublishAnswer(ctx, event); err != nil {
		s.logger.Warn("failed to publish answer event", "error", err)
	}

	return c.JSON(ChatResponse{
		Response:       answer.Text,
		ConversationID: conv.ID,
		Sources:        sources,
	})
}

// titleFromPrompt derives a conversation title from the first prompt.
func titleFromPrompt(prompt string) string {
	title := strings.TrimSpace(prompt)
	runes := []rune(title)
	if len(runes) > titleMaxRunes {
		title = string(runes[:titleMaxRunes])
	}
	return title
}
