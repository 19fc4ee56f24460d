package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when a principal without the admin capability
	// tries to review a conversion.
	ErrForbidden = errors.New("operation requires admin capability")
	// ErrInvalidStatus is returned for a status outside pending/approved/rejected.
	ErrInvalidStatus = errors.New("invalid conversion status")
)

// Principal identifies the caller of a privileged operation.
type Principal struct {
	UserID string
	Admin  bool
}

// ConversionService attributes advertiser postbacks to their originating
// clicks and owns the admin review transition.
type ConversionService interface {
	Attribute(ctx context.Context, input AttributeInput) (*model.Conversion, error)
	SetStatus(ctx context.Context, caller Principal, conversionID, status, notes string) (*model.Conversion, error)
}

// AttributeInput is the payload of one advertiser postback.
type AttributeInput struct {
	TrackingID        string
	PayoutAmount      float64
	AdvertiserRevenue float64
	OrderID           string
	Notes             string
	IPAddress         string
}

type conversionService struct {
	logger      *zap.Logger
	links       repository.LinkRepository
	clicks      repository.ClickRepository
	conversions repository.ConversionRepository
	publisher   *EventPublisher
}

// ConversionServiceDeps groups dependencies for NewConversionService.
type ConversionServiceDeps struct {
	Logger      *zap.Logger
	Links       repository.LinkRepository
	Clicks      repository.ClickRepository
	Conversions repository.ConversionRepository
	Publisher   *EventPublisher
}

// NewConversionService builds a ConversionService from its dependencies.
func NewConversionService(deps ConversionServiceDeps) ConversionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &conversionService{
		logger:      logger,
		links:       deps.Links,
		clicks:      deps.Clicks,
		conversions: deps.Conversions,
		publisher:   deps.Publisher,
	}
}

// Attribute resolves trackingID -> click -> link, then inserts the conversion
// behind the tracking_id unique index. Duplicate postbacks, concurrent or not,
// surface as ErrDuplicateConversion and leave the counters untouched.
func (s *conversionService) Attribute(ctx context.Context, input AttributeInput) (*model.Conversion, error) {
	click, err := s.clicks.GetByTrackingID(ctx, input.TrackingID)
	if err != nil {
		s.logger.Warn("postback click lookup failed",
			zap.String("tracking_id", input.TrackingID), zap.Error(err))
		return nil, fmt.Errorf("resolve click: %w", err)
	}

	link, err := s.links.GetByHash(ctx, click.LinkHash)
	if err != nil {
		s.logger.Warn("postback link lookup failed",
			zap.String("tracking_id", input.TrackingID),
			zap.String("hash", click.LinkHash), zap.Error(err))
		return nil, fmt.Errorf("resolve link: %w", err)
	}

	conv := &model.Conversion{
		ID:                uuid.New().String(),
		LinkHash:          link.Hash,
		OwnerID:           link.OwnerID,
		TrackingID:        input.TrackingID,
		PayoutAmount:      input.PayoutAmount,
		AdvertiserRevenue: input.AdvertiserRevenue,
		Status:            model.ConversionStatusPending,
		IPAddress:         input.IPAddress,
		OrderID:           input.OrderID,
		Notes:             input.Notes,
		ConvertedAt:       time.Now().UTC(),
	}
	if err := s.conversions.Insert(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrDuplicateConversion) {
			s.logger.Info("duplicate postback",
				zap.String("tracking_id", input.TrackingID),
				zap.String("hash", link.Hash))
		}
		return nil, fmt.Errorf("insert conversion: %w", err)
	}

	delta := model.CounterDelta{Conversions: 1, Revenue: input.PayoutAmount}
	if err := s.links.IncrementCounters(ctx, link.Hash, delta); err != nil {
		// Conversion row is durable; reconciler squares the counters later.
		s.logger.Error("conversion counter increment failed",
			zap.String("hash", link.Hash),
			zap.String("tracking_id", input.TrackingID),
			zap.Error(err))
	}

	if s.publisher != nil {
		s.publisher.PublishConversion(conv)
	}

	return conv, nil
}

// SetStatus moves a conversion between review states. Only principals holding
// the admin capability may call it. Any transition between valid states is
// allowed.
func (s *conversionService) SetStatus(ctx context.Context, caller Principal, conversionID, status, notes string) (*model.Conversion, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if !model.ValidConversionStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.conversions.UpdateStatus(ctx, conversionID, status, notes); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	conv, err := s.conversions.GetByID(ctx, conversionID)
	if err != nil {
		return nil, fmt.Errorf("reload conversion: %w", err)
	}

	s.logger.Info("conversion status changed",
		zap.String("conversion_id", conversionID),
		zap.String("status", status),
		zap.String("by", caller.UserID))
	return conv, nil
}
