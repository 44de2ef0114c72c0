package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const emlExtension = ".eml"

// Handler handles the classification routes
type Handler struct {
	server *Server
}

// NewHandler creates a new Handler
func NewHandler(server *Server) *Handler {
	return &Handler{server: server}
}

// RegisterRoutes registers all classification routes
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.getHealth)
	app.Get("/stats", h.getStats)
	app.Get("/models", h.getModels)

	classify := app.Group("/classify")
	classify.Post("/upload", h.classifyUpload)
	classify.Post("/batch", h.classifyBatch)
	classify.Post("/text", h.classifyText)

	app.Delete("/cache", h.clearCache)
}

func (h *Handler) getHealth(c *fiber.Ctx) error {
	health := h.server.service.Health(c.UserContext())
	return c.JSON(HealthResponse{
		Status:        health.Status,
		ModelLoaded:   health.ModelLoaded,
		ModelID:       health.ModelID,
		UptimeSeconds: health.Uptime.Seconds(),
		UptimeStats:   newCounters(health.Stats),
	})
}

func (h *Handler) getStats(c *fiber.Ctx) error {
	stats := h.server.service.Stats(c.UserContext())
	return c.JSON(StatsResponse{
		Counters:    newCounters(stats),
		ModelLoaded: stats.ModelLoaded,
		ModelID:     stats.ModelID,
		Labels:      stats.Labels,
		CacheSize:   stats.CacheSize,
	})
}

func (h *Handler) getModels(c *fiber.Ctx) error {
	stats := h.server.service.Stats(c.UserContext())
	return c.JSON(ModelsResponse{
		CurrentModel: ModelInfo{
			ID:       stats.ModelID,
			Provider: h.server.opts.Provider,
			Labels:   stats.Labels,
		},
	})
}

// classifyUpload classifies a single uploaded .eml file
func (h *Handler) classifyUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing multipart field \"file\"")
	}
	if !isEML(file.Filename) {
		return fiber.NewError(fiber.StatusBadRequest, "Only .eml files are supported")
	}
	if file.Size > h.server.cfg.MaxFileSize {
		return fiber.NewError(fiber.StatusBadRequest, h.tooLargeMessage())
	}

	raw, err := readFile(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.server.classifyContext(c, 1)
	defer cancel()

	result := h.server.service.Classify(ctx, raw, file.Filename)
	return c.JSON(result)
}

// classifyBatch classifies up to MaxBatchFiles uploaded files. Files that fail
// validation become error results in their position.
func (h *Handler) classifyBatch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Expected a multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Missing multipart field \"files\"")
	}
	if len(files) > h.server.cfg.MaxBatchFiles {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Maximum %d files allowed per batch", h.server.cfg.MaxBatchFiles))
	}

	modelID := h.server.service.ModelID()
	results := make([]*core.ClassificationResult, len(files))
	var (
		items     []core.BatchItem
		positions []int
	)
	for i, file := range files {
		if !isEML(file.Filename) {
			results[i] = core.FailedResult(file.Filename, nil, modelID, "Only .eml files are supported")
			continue
		}
		if file.Size > h.server.cfg.MaxFileSize {
			results[i] = core.FailedResult(file.Filename, nil, modelID, h.tooLargeMessage())
			continue
		}
		raw, err := readFile(file)
		if err != nil {
			h.server.logger.Warn("Failed to read uploaded file",
				zap.String("file", file.Filename), zap.Error(err))
			results[i] = core.FailedResult(file.Filename, nil, modelID, err.Error())
			continue
		}
		items = append(items, core.BatchItem{FileName: file.Filename, Raw: raw})
		positions = append(positions, i)
	}

	ctx, cancel := h.server.classifyContext(c, len(items))
	defer cancel()

	var total time.Duration
	for j, result := range h.server.service.ClassifyBatch(ctx, items) {
		results[positions[j]] = result
		total += result.ProcessingTime
	}

	failed := lo.CountBy(results, func(r *core.ClassificationResult) bool { return r.Failed() })
	return c.JSON(BatchResponse{
		Results:                   results,
		TotalFiles:                len(files),
		SuccessfulClassifications: len(files) - failed,
		FailedClassifications:     failed,
		TotalProcessingTimeMS:     core.DurationMillis(total),
	})
}

func (h *Handler) classifyText(c *fiber.Ctx) error {
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Text must not be empty")
	}

	ctx, cancel := h.server.classifyContext(c, 1)
	defer cancel()

	result := h.server.service.ClassifyText(ctx, req.Text)
	return c.JSON(newTextResponse(result))
}

func (h *Handler) clearCache(c *fiber.Ctx) error {
	if err := h.server.service.ClearCache(c.UserContext()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return c.JSON(MessageResponse{Message: "Cache cleared successfully"})
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %s", humanSize(h.server.cfg.MaxFileSize))
}

func isEML(name string) bool {
	return strings.EqualFold(filepath.Ext(name), emlExtension)
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return raw, nil
}

func humanSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
