package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"gridgame/internal/apperr"
	"gridgame/internal/model"
	"gridgame/internal/query"
	"gridgame/internal/session"
)

// Users is the subset of the Session Store the facade needs directly,
// for the one operation (create) that doesn't belong to the session
// engine's lifecycle.
type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
}

// Leaderboard is satisfied by either the query surface directly or the
// leaderboard cache wrapping it.
type Leaderboard interface {
	Leaderboard(ctx context.Context, metric model.LeaderboardMetric, limit int) ([]model.LeaderboardEntry, error)
}

// Handler dispatches validated HTTP requests to the session engine and
// query surface, and renders their results or errors. Grounded on the
// teacher's HTTPHandler wrapping a Service, generalized to four
// backing collaborators (user store, engine, query surface, leaderboard)
// instead of one.
type Handler struct {
	users       Users
	engine      *session.Engine
	query       *query.Surface
	leaderboard Leaderboard
}

func NewHandler(users Users, engine *session.Engine, q *query.Surface, lb Leaderboard) *Handler {
	return &Handler{users: users, engine: engine, query: q, leaderboard: lb}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "time": time.Now().Unix()})
}

func (h *Handler) CreateUser(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*createUserRequest)

	u := &model.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Icon:      req.Icon,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.users.CreateUser(c.Context(), u); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newUserResponse(u))
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*createSessionRequest)

	gameType := model.TicTacToe
	if req.GameType != nil {
		gameType = model.GameType(*req.GameType)
	}

	sess, err := h.engine.CreateSession(c.Context(), session.CreateSessionInput{
		HostID:   req.HostID,
		HostName: req.HostName,
		HostIcon: req.HostIcon,
		GameIcon: req.GameIcon,
		GameType: gameType,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newSessionResponse(sess, nil))
}

// withMoves re-reads a just-mutated session's move history for the
// response body. A committed read outside the engine's lock is always
// safe per spec §5.
func (h *Handler) withMoves(c *fiber.Ctx, sess *model.Session) (sessionResponse, error) {
	detail, err := h.query.GetSession(c.Context(), sess.ID)
	if err != nil {
		return sessionResponse{}, err
	}
	detail.Session = *sess
	return newSessionDetailResponse(detail), nil
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return apperr.NotFound(apperr.CodeNotFoundSession, "session not found")
	}

	detail, err := h.query.GetSession(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(newSessionDetailResponse(detail))
}

func (h *Handler) ListSessions(c *fiber.Ctx) error {
	filter := model.SessionFilter{Cursor: c.Query("cursor")}

	if status := c.Query("status"); status != "" {
		s := model.Status(status)
		filter.Status = &s
	}
	if hostID := c.Query("hostId"); hostID != "" {
		filter.HostID = &hostID
	}
	if limit := c.QueryInt("limit", 0); limit > 0 {
		filter.Limit = limit
	}

	page, err := h.query.ListSessions(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(newListSessionsResponse(page))
}

func (h *Handler) JoinSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return apperr.NotFound(apperr.CodeNotFoundSession, "session not found")
	}
	req := c.Locals("validatedBody").(*joinSessionRequest)

	sess, err := h.engine.JoinSession(c.Context(), id, req.PlayerID)
	if err != nil {
		return err
	}
	resp, err := h.withMoves(c, sess)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *Handler) SubmitMove(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return apperr.NotFound(apperr.CodeNotFoundSession, "session not found")
	}
	req := c.Locals("validatedBody").(*submitMoveRequest)

	sess, err := h.engine.SubmitMove(c.Context(), id, req.PlayerID, req.Row, req.Col)
	if err != nil {
		return err
	}
	resp, err := h.withMoves(c, sess)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	metric := model.LeaderboardMetric(c.Query("metric", string(model.MetricWinCount)))
	if !metric.Valid() {
		return apperr.Validation(apperr.CodeInvalidRequest, "metric must be win_count or efficiency")
	}
	limit := c.QueryInt("limit", 20)
	if limit > 100 {
		limit = 100
	}

	entries, err := h.leaderboard.Leaderboard(c.Context(), metric, limit)
	if err != nil {
		return err
	}
	return c.JSON(newLeaderboardResponse(entries))
}
