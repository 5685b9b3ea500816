// Package http is the Request Facade: response shaping, validation,
// rate limiting, and error mapping in front of the session engine and
// query surface. Grounded on the teacher's internal/server/http
// package (NewFiberApp wiring, customErrorHandler, validationMiddleware).
package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"gridgame/internal/logging"
)

// Config controls CORS and rate limiting for NewFiberApp.
type Config struct {
	CORSOrigins     []string
	RateLimitPerSec int
}

// NewFiberApp wires middleware and routes over h, mirroring the
// teacher's middleware order: recover, request logging, cors, rate
// limiter, then request validation.
func NewFiberApp(h *Handler, cfg Config, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: newErrorHandler(logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logging.FiberMiddleware(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: joinOrigins(cfg.CORSOrigins),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", h.Health)

	api := app.Group("/")

	maxReq := cfg.RateLimitPerSec
	if maxReq <= 0 {
		maxReq = 20
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api.Use(validationMiddleware)

	api.Post("/users", h.CreateUser)

	api.Post("/sessions", h.CreateSession)
	api.Get("/sessions", h.ListSessions)
	api.Get("/sessions/:id", h.GetSession)
	api.Post("/sessions/:id/join", h.JoinSession)
	api.Post("/sessions/:id/move", h.SubmitMove)

	api.Get("/leaderboard", h.GetLeaderboard)

	return app
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	out := origins[0]
	for _, o := range origins[1:] {
		out += "," + o
	}
	return out
}
