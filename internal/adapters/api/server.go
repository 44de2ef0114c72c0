package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/core"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// ClassificationService is the part of core.ClassificationService the API depends on
type ClassificationService interface {
	ModelID() string
	Classify(ctx context.Context, raw []byte, fileName string) *core.ClassificationResult
	ClassifyBatch(ctx context.Context, items []core.BatchItem) []*core.ClassificationResult
	ClassifyText(ctx context.Context, text string) *core.ClassificationResult
	Stats(ctx context.Context) core.Stats
	Health(ctx context.Context) core.Health
	ClearCache(ctx context.Context) error
}

// Options carries the settings the API takes from outside the server section
type Options struct {
	RequestTimeout time.Duration
	Provider       string
}

// Server serves the classification HTTP API
type Server struct {
	app     *fiber.App
	service ClassificationService
	cfg     config.ServerConfig
	opts    Options
	logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new HTTP API server and registers its routes
func NewServer(service ClassificationService, cfg config.ServerConfig, opts Options, logger *zap.Logger) *Server {
	if cfg.MaxBatchFiles < 1 {
		cfg.MaxBatchFiles = 1
	}

	app := fiber.New(fiber.Config{
		AppName:               "email-classifier",
		DisableStartupMessage: true,
		// The batch endpoint accepts up to MaxBatchFiles files of MaxFileSize
		// each plus multipart overhead.
		BodyLimit:    int(cfg.MaxFileSize)*cfg.MaxBatchFiles + 1<<20,
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(requestLogger(logger))

	s := &Server{
		app:     app,
		service: service,
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
	}
	NewHandler(s).RegisterRoutes(app)

	return s
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Start binds the listen address and serves requests in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Starting HTTP API", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.logger.Error("HTTP API stopped with error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or an empty string before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting for in-flight requests
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API")
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

// classifyContext bounds one classification call by the configured timeout
func (s *Server) classifyContext(c *fiber.Ctx, calls int) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), s.opts.RequestTimeout*time.Duration(max(calls, 1)))
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
	}
}

// requestLogger logs one line per request. Errors are rendered here so that
// the logged status is the one sent to the client.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request_id", c.Locals("requestid")))
		return nil
	}
}
