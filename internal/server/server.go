// Package server exposes the CV builder over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/cv"
	"github.com/spigell/cv-builder/internal/logger"
)

const (
	DefaultListen          = ":8080"
	DefaultRequestTimeout  = 90 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	localsRequestID = "request_id"
)

// Generator runs one CV generation. *cv.Builder satisfies it.
type Generator interface {
	Build(ctx context.Context, req cv.GenerationRequest) cv.Result
}

type Config struct {
	Listen          string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// MissingEnv lists the environment variables the model backend needs but
	// that were not set at startup. Generation is refused while it is non-empty.
	MissingEnv []string
}

type Server struct {
	app       *fiber.App
	cfg       Config
	generator Generator
	logger    *zap.Logger
}

func New(cfg Config, generator Generator, log *zap.Logger) *Server {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		cfg:       cfg,
		generator: generator,
		logger:    logger.WithFields(log),
	}

	app := fiber.New(fiber.Config{
		AppName:               "cv-builder",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(fiberrecover.New())
	app.Use(s.requestID)
	app.Use(s.accessLog)

	app.Get("/health", s.health)
	app.Post("/cv/generate", s.generate)

	s.app = app
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.Listen)
	}()

	s.logger.Info("server started", zap.String("listen", s.cfg.Listen))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	if err := s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(s.cfg.ShutdownTimeout):
		return nil
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) generate(c *fiber.Ctx) error {
	log := logger.WithRequest(s.logger, requestIDFrom(c))

	var req cv.GenerationRequest
	if err := c.BodyParser(&req); err != nil {
		log.Debug("rejecting request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if len(s.cfg.MissingEnv) > 0 {
		log.Error("model backend is not configured", zap.Strings("missing", s.cfg.MissingEnv))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "server is missing required configuration",
			"missing": s.cfg.MissingEnv,
		})
	}

	if s.generator == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cv generation is not available"})
	}

	// fiber does not cancel the user context when the client disconnects; the
	// request timeout is what bounds an in-flight model call.
	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
	defer cancel()

	result := s.generator.Build(ctx, req)
	if !result.OK() {
		status, message := failureResponse(result.Err)
		log.Warn("cv request failed",
			zap.Int("status", status),
			zap.String(logger.FieldStage, string(stageOf(result.Err))),
			zap.Error(result.Err),
		)
		return c.Status(status).JSON(fiber.Map{"error": message})
	}

	return c.JSON(fiber.Map{"data": result.Document})
}

// failureResponse maps a build failure to a status code and a message that
// does not reveal model ids or provider errors.
func failureResponse(err *cv.BuildError) (int, string) {
	if err == nil {
		return fiber.StatusInternalServerError, "failed to generate CV"
	}

	switch err.Stage {
	case cv.StageRequest, cv.StageCompose:
		var invalid *cv.InvalidRequestError
		if errors.As(err, &invalid) {
			return fiber.StatusBadRequest, invalid.Error()
		}
	case cv.StageGenerate:
		if errors.Is(err, context.DeadlineExceeded) {
			return fiber.StatusInternalServerError, "CV generation timed out, please try again"
		}
		return fiber.StatusInternalServerError, "failed to generate CV, please try again later"
	case cv.StageValidate:
		return fiber.StatusInternalServerError, "the generated CV was incomplete, please try again"
	}

	return fiber.StatusInternalServerError, "failed to generate CV"
}

func stageOf(err *cv.BuildError) cv.Stage {
	if err == nil {
		return ""
	}
	return err.Stage
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
	if id == "" {
		id = uuid.NewString()
	}

	c.Set(fiber.HeaderXRequestID, id)
	c.Locals(localsRequestID, id)

	return c.Next()
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()

	s.logger.Info("http request",
		zap.String(logger.FieldRequestID, requestIDFrom(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(started)),
	)

	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("unhandled request error", zap.String(logger.FieldRequestID, requestIDFrom(c)), zap.Error(err))
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
