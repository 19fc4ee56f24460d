package handler

import (
	"context"
	"errors"
	"time"

	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/afftrack/afftrack/internal/app/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger     *zap.Logger
	Clicks     service.ClickService
	HashFilter *service.HashFilter
}

// RedirectHandler serves the public redirect endpoint.
type RedirectHandler struct {
	logger     *zap.Logger
	clicks     service.ClickService
	hashFilter *service.HashFilter
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:     logger,
		clicks:     deps.Clicks,
		hashFilter: deps.HashFilter,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/r/:hash", h.Resolve)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "afftrack",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /r/:hash: records the click and issues the 302.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing link hash",
		})
	}

	// Definitely-unknown hashes skip the database entirely.
	if h.hashFilter != nil && !h.hashFilter.MayExist(hash) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := h.clicks.Record(ctx, service.RecordClickInput{
		Hash:      hash,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		Referer:   c.Get("Referer"),
	})
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to record click", zap.Error(err), zap.String("hash", hash))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	h.logger.Debug("redirecting tracked link",
		zap.String("hash", hash),
		zap.String("tracking_id", result.TrackingID),
		zap.Bool("unique", result.IsUnique))
	return c.Redirect(result.DestinationURL, fiber.StatusFound)
}
