package service

import (
	"context"
	"errors"
	"testing"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
)

func attributionFixtures() (*mockClickRepository, *mockLinkRepository) {
	clicks := &mockClickRepository{
		getFn: func(ctx context.Context, trackingID string) (*model.Click, error) {
			return &model.Click{
				ID:         "click-1",
				TrackingID: trackingID,
				LinkHash:   "abc12345",
				OwnerID:    "user-1",
			}, nil
		},
	}
	links := &mockLinkRepository{
		getFn: func(ctx context.Context, hash string) (*model.AffiliateLink, error) {
			return &model.AffiliateLink{Hash: hash, OwnerID: "user-1", IsActive: true}, nil
		},
	}
	return clicks, links
}

func TestConversionService_Attribute(t *testing.T) {
	clicks, links := attributionFixtures()

	var inserted *model.Conversion
	var bumped model.CounterDelta
	links.incrementFn = func(ctx context.Context, hash string, delta model.CounterDelta) error {
		if hash != "abc12345" {
			t.Fatalf("counter bump on wrong link: %q", hash)
		}
		bumped = delta
		return nil
	}

	svc := NewConversionService(ConversionServiceDeps{
		Links:  links,
		Clicks: clicks,
		Conversions: &mockConversionRepository{
			insertFn: func(ctx context.Context, conv *model.Conversion) error {
				inserted = conv
				return nil
			},
		},
	})

	conv, err := svc.Attribute(context.Background(), AttributeInput{
		TrackingID:   "track-1",
		PayoutAmount: 10.00,
		OrderID:      "order-77",
	})
	if err != nil {
		t.Fatalf("Attribute error: %v", err)
	}

	if conv.Status != model.ConversionStatusPending {
		t.Fatalf("expected pending status, got %q", conv.Status)
	}
	if conv.LinkHash != "abc12345" || conv.OwnerID != "user-1" {
		t.Fatalf("conversion not attributed to link owner: %+v", conv)
	}
	if inserted == nil || inserted.TrackingID != "track-1" {
		t.Fatal("expected conversion row keyed by tracking id")
	}
	if bumped.Conversions != 1 || bumped.Revenue != 10.00 {
		t.Fatalf("expected conversions=1 revenue=10, got %+v", bumped)
	}
}

func TestConversionService_Attribute_ClickNotFound(t *testing.T) {
	svc := NewConversionService(ConversionServiceDeps{
		Links: &mockLinkRepository{},
		Clicks: &mockClickRepository{
			getFn: func(ctx context.Context, trackingID string) (*model.Click, error) {
				return nil, repository.ErrClickNotFound
			},
		},
		Conversions: &mockConversionRepository{
			insertFn: func(ctx context.Context, conv *model.Conversion) error {
				t.Fatal("no conversion may be written without a click")
				return nil
			},
		},
	})

	_, err := svc.Attribute(context.Background(), AttributeInput{TrackingID: "ghost", PayoutAmount: 1})
	if !errors.Is(err, repository.ErrClickNotFound) {
		t.Fatalf("expected ErrClickNotFound, got %v", err)
	}
}

func TestConversionService_Attribute_LinkNotFound(t *testing.T) {
	clicks, _ := attributionFixtures()
	svc := NewConversionService(ConversionServiceDeps{
		Links: &mockLinkRepository{
			getFn: func(ctx context.Context, hash string) (*model.AffiliateLink, error) {
				return nil, repository.ErrLinkNotFound
			},
		},
		Clicks:      clicks,
		Conversions: &mockConversionRepository{},
	})

	_, err := svc.Attribute(context.Background(), AttributeInput{TrackingID: "track-1", PayoutAmount: 1})
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestConversionService_Attribute_Duplicate(t *testing.T) {
	clicks, links := attributionFixtures()
	links.incrementFn = func(ctx context.Context, hash string, delta model.CounterDelta) error {
		t.Fatal("duplicate conversion must not move counters")
		return nil
	}

	svc := NewConversionService(ConversionServiceDeps{
		Links:  links,
		Clicks: clicks,
		Conversions: &mockConversionRepository{
			insertFn: func(ctx context.Context, conv *model.Conversion) error {
				return repository.ErrDuplicateConversion
			},
		},
	})

	_, err := svc.Attribute(context.Background(), AttributeInput{TrackingID: "track-1", PayoutAmount: 10})
	if !errors.Is(err, repository.ErrDuplicateConversion) {
		t.Fatalf("expected ErrDuplicateConversion, got %v", err)
	}
}

func TestConversionService_SetStatus_RequiresAdmin(t *testing.T) {
	svc := NewConversionService(ConversionServiceDeps{
		Links:  &mockLinkRepository{},
		Clicks: &mockClickRepository{},
		Conversions: &mockConversionRepository{
			updateStatusFn: func(ctx context.Context, id, status, notes string) error {
				t.Fatal("non-admin caller must not reach the repository")
				return nil
			},
		},
	})

	_, err := svc.SetStatus(context.Background(), Principal{UserID: "user-1"}, "conv-1", model.ConversionStatusApproved, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConversionService_SetStatus_InvalidStatus(t *testing.T) {
	svc := NewConversionService(ConversionServiceDeps{
		Links:       &mockLinkRepository{},
		Clicks:      &mockClickRepository{},
		Conversions: &mockConversionRepository{},
	})

	_, err := svc.SetStatus(context.Background(), Principal{UserID: "admin", Admin: true}, "conv-1", "refunded", "")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestConversionService_SetStatus_Approves(t *testing.T) {
	updated := false
	svc := NewConversionService(ConversionServiceDeps{
		Links:  &mockLinkRepository{},
		Clicks: &mockClickRepository{},
		Conversions: &mockConversionRepository{
			updateStatusFn: func(ctx context.Context, id, status, notes string) error {
				if status != model.ConversionStatusApproved {
					t.Fatalf("expected approved, got %q", status)
				}
				updated = true
				return nil
			},
			getFn: func(ctx context.Context, id string) (*model.Conversion, error) {
				return &model.Conversion{ID: id, Status: model.ConversionStatusApproved}, nil
			},
		},
	})

	conv, err := svc.SetStatus(context.Background(), Principal{UserID: "admin", Admin: true}, "conv-1", model.ConversionStatusApproved, "looks good")
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if !updated {
		t.Fatal("expected status update to hit the repository")
	}
	if conv.Status != model.ConversionStatusApproved {
		t.Fatalf("expected approved conversion, got %q", conv.Status)
	}
}

func TestConversionService_SetStatus_Unknown(t *testing.T) {
	svc := NewConversionService(ConversionServiceDeps{
		Links:  &mockLinkRepository{},
		Clicks: &mockClickRepository{},
		Conversions: &mockConversionRepository{
			updateStatusFn: func(ctx context.Context, id, status, notes string) error {
				return repository.ErrConversionNotFound
			},
		},
	})

	_, err := svc.SetStatus(context.Background(), Principal{UserID: "admin", Admin: true}, "nope", model.ConversionStatusRejected, "")
	if !errors.Is(err, repository.ErrConversionNotFound) {
		t.Fatalf("expected ErrConversionNotFound, got %v", err)
	}
}
