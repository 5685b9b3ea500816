// Package logging wires up structured logging (zap) and a Fiber request
// logging middleware, replacing the teacher's plain-text logger.Config
// format string with structured fields.
package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger at the given level ("debug", "info", "warn",
// "error"); unrecognized levels fall back to "info".
func New(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// FiberMiddleware logs each request's method, path, status, and latency,
// grounded on the teacher's logger.New(logger.Config{Format: ...}) but
// emitting structured fields instead of a format string.
func FiberMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}

		if err != nil {
			logger.Error("request failed", append(fields, zap.Error(err))...)
			return err
		}

		logger.Info("request", fields...)
		return nil
	}
}
