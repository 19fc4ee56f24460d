package handler

import (
	"context"
	"errors"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/afftrack/afftrack/internal/app/service"
	"github.com/afftrack/afftrack/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	Links       service.LinkService
	Conversions service.ConversionService
	ClickRepo   repository.ClickRepository
	ConvRepo    repository.ConversionRepository
	Stats       service.StatsService
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger      *zap.Logger
	links       service.LinkService
	conversions service.ConversionService
	clickRepo   repository.ClickRepository
	convRepo    repository.ConversionRepository
	stats       service.StatsService
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		links:       deps.Links,
		conversions: deps.Conversions,
		clickRepo:   deps.ClickRepo,
		convRepo:    deps.ConvRepo,
		stats:       deps.Stats,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:hash", h.GetLink)
			links.Get("/:hash/stats", h.LinkStats)
			links.Patch("/:hash", h.UpdateLink)
		}

		user := api.Group("/user")
		{
			user.Get("/clicks", h.ListClicks)
			user.Get("/conversions", h.ListConversions)
			user.Get("/conversions/stats", h.ConversionStats)
			user.Patch("/conversions/:id", h.SetConversionStatus)
		}
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	DestinationURL string `json:"destination_url"`
	Tag            string `json:"tag,omitempty"`
}

// LinkResponse represents a link in API responses.
type LinkResponse struct {
	Hash             string    `json:"hash"`
	OwnerID          string    `json:"owner_id"`
	DestinationURL   string    `json:"destination_url"`
	Tag              string    `json:"tag,omitempty"`
	IsActive         bool      `json:"is_active"`
	ClickCount       int64     `json:"click_count"`
	UniqueClickCount int64     `json:"unique_click_count"`
	ConversionCount  int64     `json:"conversion_count"`
	TotalRevenue     float64   `json:"total_revenue"`
	CreatedAt        time.Time `json:"created_at"`
}

func linkResponse(link *model.AffiliateLink) LinkResponse {
	return LinkResponse{
		Hash:             link.Hash,
		OwnerID:          link.OwnerID,
		DestinationURL:   link.DestinationURL,
		Tag:              link.Tag,
		IsActive:         link.IsActive,
		ClickCount:       link.ClickCount,
		UniqueClickCount: link.UniqueClickCount,
		ConversionCount:  link.ConversionCount,
		TotalRevenue:     link.TotalRevenue,
		CreatedAt:        link.CreatedAt,
	}
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	caller := middleware.CallerPrincipal(c)
	if caller.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "caller identity required",
		})
	}

	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.DestinationURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "destination_url is required",
		})
	}

	link, err := h.links.CreateLink(userContext(c), service.CreateLinkInput{
		OwnerID:        caller.UserID,
		DestinationURL: req.DestinationURL,
		Tag:            req.Tag,
	})
	if err != nil {
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create link",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(linkResponse(link))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	caller := middleware.CallerPrincipal(c)
	if caller.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "caller identity required",
		})
	}

	limit, offset := pagination(c)
	links, err := h.links.ListLinks(userContext(c), caller.UserID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = linkResponse(&links[i])
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetLink handles GET /api/links/:hash
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	link, err := h.loadLink(c)
	if link == nil {
		return err
	}
	return c.JSON(linkResponse(link))
}

// LinkStats handles GET /api/links/:hash/stats
func (h *APIHandler) LinkStats(c *fiber.Ctx) error {
	link, err := h.loadLink(c)
	if link == nil {
		return err
	}
	return c.JSON(service.StatsForLink(link))
}

// UpdateLinkRequest represents the request body for updating a link.
type UpdateLinkRequest struct {
	DestinationURL *string `json:"destination_url,omitempty"`
	Tag            *string `json:"tag,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// UpdateLink handles PATCH /api/links/:hash
func (h *APIHandler) UpdateLink(c *fiber.Ctx) error {
	caller := middleware.CallerPrincipal(c)
	if caller.UserID == "" && !caller.Admin {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "caller identity required",
		})
	}

	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "hash is required",
		})
	}

	existing, err := h.links.GetLink(userContext(c), hash)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to load link", zap.Error(err), zap.String("hash", hash))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	if existing.OwnerID != caller.UserID && !caller.Admin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "link belongs to another owner",
		})
	}

	var req UpdateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.DestinationURL != nil && *req.DestinationURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "destination_url must not be empty",
		})
	}

	link, err := h.links.UpdateLink(userContext(c), hash, service.UpdateLinkInput{
		DestinationURL: req.DestinationURL,
		Tag:            req.Tag,
		IsActive:       req.IsActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to update link", zap.Error(err), zap.String("hash", hash))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update link",
		})
	}

	return c.JSON(linkResponse(link))
}

// ClickResponse represents a click in API responses.
type ClickResponse struct {
	ID         string    `json:"id"`
	LinkHash   string    `json:"link_hash"`
	TrackingID string    `json:"tracking_id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	IsUnique   bool      `json:"is_unique"`
	Timestamp  time.Time `json:"timestamp"`
}

// ListClicks handles GET /api/user/clicks
func (h *APIHandler) ListClicks(c *fiber.Ctx) error {
	caller := middleware.CallerPrincipal(c)
	if caller.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "caller identity required",
		})
	}

	limit, offset := pagination(c)
	clicks, err := h.clickRepo.ListByOwner(userContext(c), caller.UserID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list clicks", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list clicks",
		})
	}

	response := make([]ClickResponse, len(clicks))
	for i, click := range clicks {
		response[i] = ClickResponse{
			ID:         click.ID,
			LinkHash:   click.LinkHash,
			TrackingID: click.TrackingID,
			IPAddress:  click.IPAddress,
			UserAgent:  click.UserAgent,
			Referer:    click.Referer,
			IsUnique:   click.IsUnique,
			Timestamp:  click.Timestamp,
		}
	}

	return c.JSON(fiber.Map{
		"clicks": response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// ConversionResponse represents a conversion in API responses.
type ConversionResponse struct {
	ID                string    `json:"id"`
	LinkHash          string    `json:"link_hash"`
	TrackingID        string    `json:"tracking_id"`
	PayoutAmount      float64   `json:"payout_amount"`
	AdvertiserRevenue float64   `json:"advertiser_revenue,omitempty"`
	Status            string    `json:"status"`
	OrderID           string    `json:"order_id,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	ConvertedAt       time.Time `json:"converted_at"`
}

func conversionResponse(conv *model.Conversion) ConversionResponse {
	return ConversionResponse{
		ID:                conv.ID,
		LinkHash:          conv.LinkHash,
		TrackingID:        conv.TrackingID,
		PayoutAmount:      conv.PayoutAmount,
		AdvertiserRevenue: conv.AdvertiserRevenue,
		Status:            conv.Status,
		OrderID:           conv.OrderID,
		Notes:             conv.Notes,
		ConvertedAt:       conv.ConvertedAt,
	}
}

// ListConversions handles GET /api/user/conversions
func (h *APIHandler) ListConversions(c *fiber.Ctx) error {
	caller := middleware.CallerPrincipal(c)
	if caller.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "caller identity required",
		})
	}

	limit, offset := pagination(c)
	conversions, err := h.convRepo.ListByOwner(userContext(c), caller.UserID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list conversions",
		})
	}

	response := make([]ConversionResponse, len(conversions))
	for i := range conversions {
		response[i] = conversionResponse(&conversions[i])
	}

	return c.JSON(fiber.Map{
		"conversions": response,
		"limit":       limit,
		"offset":      offset,
		"count":       len(response),
	})
}

// ConversionStats handles GET /api/user/conversions/stats
func (h *APIHandler) ConversionStats(c *fiber.Ctx) error {
	caller := middleware.CallerPrincipal(c)
	if caller.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "caller identity required",
		})
	}

	stats, err := h.stats.OwnerStats(userContext(c), caller.UserID)
	if err != nil {
		h.logger.Error("failed to compute owner stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to compute stats",
		})
	}

	return c.JSON(stats)
}

// SetConversionStatusRequest represents the admin review body.
type SetConversionStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// SetConversionStatus handles PATCH /api/user/conversions/:id
func (h *APIHandler) SetConversionStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "conversion id is required",
		})
	}

	var req SetConversionStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	conv, err := h.conversions.SetStatus(userContext(c), middleware.CallerPrincipal(c), id, req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin capability required",
			})
		case errors.Is(err, service.ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "status must be one of: pending, approved, rejected",
			})
		case errors.Is(err, repository.ErrConversionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "conversion not found",
			})
		}
		h.logger.Error("failed to update conversion status",
			zap.Error(err), zap.String("conversion_id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update conversion",
		})
	}

	return c.JSON(conversionResponse(conv))
}

// loadLink resolves :hash, writing the error response itself.
// A nil link means the response has already been sent.
func (h *APIHandler) loadLink(c *fiber.Ctx) (*model.AffiliateLink, error) {
	hash := c.Params("hash")
	if hash == "" {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "hash is required",
		})
	}

	link, err := h.links.GetLink(userContext(c), hash)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to get link", zap.Error(err), zap.String("hash", hash))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	return link, nil
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = 20
	offset = 0
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed >= 0 {
		offset = parsed
	}
	return limit, offset
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
