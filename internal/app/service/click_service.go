package service

import (
	"context"
	"fmt"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDedupWindow is how long a (link, ip) pair stays non-unique after its
// first click.
const DefaultDedupWindow = 24 * time.Hour

// ClickService records redirects: it resolves the hash, decides uniqueness,
// writes the click row and bumps the link counters.
type ClickService interface {
	Record(ctx context.Context, input RecordClickInput) (*RecordClickResult, error)
}

// RecordClickInput is everything the redirect handler knows about the visitor.
type RecordClickInput struct {
	Hash      string
	IPAddress string
	UserAgent string
	Referer   string
}

// RecordClickResult carries the destination to redirect to and the tracking id
// minted for later conversion attribution.
type RecordClickResult struct {
	DestinationURL string
	TrackingID     string
	IsUnique       bool
}

type clickService struct {
	logger      *zap.Logger
	links       repository.LinkRepository
	clicks      repository.ClickRepository
	deduper     ClickDeduper
	publisher   *EventPublisher
	dedupWindow time.Duration
}

// ClickServiceDeps groups dependencies for NewClickService. Deduper and
// Publisher are optional; without a deduper uniqueness falls back to the click
// table directly.
type ClickServiceDeps struct {
	Logger      *zap.Logger
	Links       repository.LinkRepository
	Clicks      repository.ClickRepository
	Deduper     ClickDeduper
	Publisher   *EventPublisher
	DedupWindow time.Duration
}

// NewClickService builds a ClickService from its dependencies.
func NewClickService(deps ClickServiceDeps) ClickService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := deps.DedupWindow
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &clickService{
		logger:      logger,
		links:       deps.Links,
		clicks:      deps.Clicks,
		deduper:     deps.Deduper,
		publisher:   deps.Publisher,
		dedupWindow: window,
	}
}

func (s *clickService) Record(ctx context.Context, input RecordClickInput) (*RecordClickResult, error) {
	link, err := s.links.GetByHash(ctx, input.Hash)
	if err != nil {
		return nil, fmt.Errorf("resolve link: %w", err)
	}
	if !link.IsActive {
		// Inactive links behave exactly like unknown ones: no click row, no
		// counter movement.
		return nil, fmt.Errorf("resolve link: %w", repository.ErrLinkNotFound)
	}

	isUnique, claimed := s.firstInWindow(ctx, link.Hash, input.IPAddress)

	click := &model.Click{
		ID:         uuid.New().String(),
		TrackingID: uuid.New().String(),
		LinkHash:   link.Hash,
		OwnerID:    link.OwnerID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		Referer:    input.Referer,
		IsUnique:   isUnique,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.clicks.Create(ctx, click); err != nil {
		// The click never made it to storage, so the window slot it claimed
		// must be given back or the pair's next click can never be unique.
		if claimed {
			if relErr := s.deduper.Release(ctx, link.Hash, input.IPAddress); relErr != nil {
				s.logger.Warn("failed to release dedup claim",
					zap.String("hash", link.Hash), zap.Error(relErr))
			}
		}
		return nil, fmt.Errorf("store click: %w", err)
	}

	delta := model.CounterDelta{Clicks: 1}
	if isUnique {
		delta.UniqueClicks = 1
	}
	if err := s.links.IncrementCounters(ctx, link.Hash, delta); err != nil {
		// The click row is already durable and keyed by tracking id, so the
		// reconciler repairs the counters later instead of us rolling back.
		s.logger.Error("click counter increment failed",
			zap.String("hash", link.Hash),
			zap.String("tracking_id", click.TrackingID),
			zap.Error(err))
	}

	if s.publisher != nil {
		s.publisher.PublishClick(click)
	}

	return &RecordClickResult{
		DestinationURL: link.DestinationURL,
		TrackingID:     click.TrackingID,
		IsUnique:       isUnique,
	}, nil
}

// firstInWindow asks the deduper whether this pair is new, falling back to the
// click table when Redis is unreachable. Either answer only affects the
// uniqueness flag, never whether the click is recorded. claimed reports
// whether the deduper handed out the window's unique slot to this call.
func (s *clickService) firstInWindow(ctx context.Context, hash, ip string) (unique, claimed bool) {
	if s.deduper != nil {
		first, err := s.deduper.FirstInWindow(ctx, hash, ip, s.dedupWindow)
		if err == nil {
			return first, first
		}
		s.logger.Warn("dedup check failed, falling back to click table",
			zap.String("hash", hash), zap.Error(err))
	}

	seen, err := s.clicks.ExistsSince(ctx, hash, ip, time.Now().UTC().Add(-s.dedupWindow))
	if err != nil {
		s.logger.Error("click table dedup fallback failed",
			zap.String("hash", hash), zap.Error(err))
		// Unknown history counts the click as a repeat so unique_click_count
		// can never overshoot click_count.
		return false, false
	}
	return !seen, false
}
