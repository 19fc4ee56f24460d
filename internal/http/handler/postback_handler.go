package handler

import (
	"context"
	"errors"

	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/afftrack/afftrack/internal/app/service"
	infraProm "github.com/afftrack/afftrack/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PostbackDeps groups dependencies required by the postback handler.
type PostbackDeps struct {
	Logger      *zap.Logger
	Conversions service.ConversionService
	Metrics     *infraProm.Metrics
}

// PostbackHandler receives conversion postbacks from advertiser systems.
type PostbackHandler struct {
	logger      *zap.Logger
	conversions service.ConversionService
	metrics     *infraProm.Metrics
}

// NewPostbackHandler creates a postback handler with the provided dependencies.
func NewPostbackHandler(deps PostbackDeps) *PostbackHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostbackHandler{
		logger:      logger,
		conversions: deps.Conversions,
		metrics:     deps.Metrics,
	}
}

// Register wires postback routes onto the provided router.
func (h *PostbackHandler) Register(router fiber.Router) {
	router.Post("/track/conversion", h.TrackConversion)
}

// TrackConversionRequest is the postback body.
type TrackConversionRequest struct {
	TrackingID        string   `json:"trackingId"`
	PayoutAmount      *float64 `json:"payoutAmount"`
	AdvertiserRevenue float64  `json:"advertiserRevenue,omitempty"`
	OrderID           string   `json:"orderId,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// TrackConversionResponse is returned on a successful attribution.
type TrackConversionResponse struct {
	ConversionID string `json:"conversionId"`
	TrackingID   string `json:"trackingId"`
	Status       string `json:"status"`
}

// TrackConversion handles POST /track/conversion.
func (h *PostbackHandler) TrackConversion(c *fiber.Ctx) error {
	var req TrackConversionRequest
	if err := c.BodyParser(&req); err != nil {
		return h.reject(c, fiber.StatusBadRequest, "invalid request body", "bad_body")
	}

	if req.TrackingID == "" {
		return h.reject(c, fiber.StatusBadRequest, "trackingId is required", "missing_tracking_id")
	}
	if req.PayoutAmount == nil {
		return h.reject(c, fiber.StatusBadRequest, "payoutAmount is required", "missing_payout")
	}
	if *req.PayoutAmount < 0 {
		return h.reject(c, fiber.StatusBadRequest, "payoutAmount must not be negative", "negative_payout")
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	conv, err := h.conversions.Attribute(ctx, service.AttributeInput{
		TrackingID:        req.TrackingID,
		PayoutAmount:      *req.PayoutAmount,
		AdvertiserRevenue: req.AdvertiserRevenue,
		OrderID:           req.OrderID,
		Notes:             req.Notes,
		IPAddress:         c.IP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClickNotFound):
			return h.reject(c, fiber.StatusNotFound, "click not found for tracking id", "click_not_found")
		case errors.Is(err, repository.ErrLinkNotFound):
			return h.reject(c, fiber.StatusNotFound, "link not found for tracking id", "link_not_found")
		case errors.Is(err, repository.ErrDuplicateConversion):
			return h.reject(c, fiber.StatusConflict, "conversion already recorded", "duplicate")
		}
		h.logger.Error("failed to attribute conversion",
			zap.Error(err), zap.String("tracking_id", req.TrackingID))
		return h.reject(c, fiber.StatusInternalServerError, "internal server error", "internal")
	}

	return c.Status(fiber.StatusCreated).JSON(TrackConversionResponse{
		ConversionID: conv.ID,
		TrackingID:   conv.TrackingID,
		Status:       conv.Status,
	})
}

func (h *PostbackHandler) reject(c *fiber.Ctx, status int, message, reason string) error {
	if h.metrics != nil {
		h.metrics.PostbackFailures.WithLabelValues(reason).Inc()
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
