package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/service"
	"github.com/afftrack/afftrack/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
)

const testAdminKey = "test-admin-key"

func apiApp(svc service.ConversionService) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Principal(testAdminKey))
	NewAPIHandler(APIDeps{Conversions: svc}).Register(app)
	return app
}

func patchStatus(app *fiber.App, auth string) (int, error) {
	req := httptest.NewRequest("PATCH", "/api/user/conversions/conv-1", strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func TestSetConversionStatus_Admin(t *testing.T) {
	app := apiApp(&stubConversionService{
		setStatusFn: func(ctx context.Context, caller service.Principal, conversionID, status, notes string) (*model.Conversion, error) {
			if !caller.Admin {
				return nil, service.ErrForbidden
			}
			return &model.Conversion{ID: conversionID, Status: status}, nil
		},
	})

	status, err := patchStatus(app, "Bearer "+testAdminKey)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", status)
	}
}

func TestSetConversionStatus_NonAdminForbidden(t *testing.T) {
	app := apiApp(&stubConversionService{
		setStatusFn: func(ctx context.Context, caller service.Principal, conversionID, status, notes string) (*model.Conversion, error) {
			if !caller.Admin {
				return nil, service.ErrForbidden
			}
			t.Fatal("non-admin request must not be treated as admin")
			return nil, nil
		},
	})

	for _, auth := range []string{"", "Bearer wrong-key"} {
		status, err := patchStatus(app, auth)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if status != fiber.StatusForbidden {
			t.Fatalf("expected 403 for auth %q, got %d", auth, status)
		}
	}
}

func TestSetConversionStatus_InvalidStatus(t *testing.T) {
	app := apiApp(&stubConversionService{
		setStatusFn: func(ctx context.Context, caller service.Principal, conversionID, status, notes string) (*model.Conversion, error) {
			return nil, service.ErrInvalidStatus
		},
	})

	req := httptest.NewRequest("PATCH", "/api/user/conversions/conv-1", strings.NewReader(`{"status":"refunded"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSetConversionStatus_Unknown(t *testing.T) {
	app := apiApp(&stubConversionService{})

	status, err := patchStatus(app, "Bearer "+testAdminKey)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

type stubClickRepository struct {
	listFn func(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error)
}

func (s *stubClickRepository) Create(ctx context.Context, click *model.Click) error { return nil }

func (s *stubClickRepository) GetByTrackingID(ctx context.Context, trackingID string) (*model.Click, error) {
	return nil, nil
}

func (s *stubClickRepository) ExistsSince(ctx context.Context, linkHash, ipAddress string, since time.Time) (bool, error) {
	return false, nil
}

func (s *stubClickRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error) {
	if s.listFn != nil {
		return s.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func TestListClicks(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Principal(testAdminKey))
	NewAPIHandler(APIDeps{ClickRepo: &stubClickRepository{
		listFn: func(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error) {
			if ownerID != "user-1" {
				t.Fatalf("expected owner scoping, got %q", ownerID)
			}
			return []model.Click{{ID: "click-1", LinkHash: "abc12345", TrackingID: "track-1"}}, nil
		},
	}}).Register(app)

	req := httptest.NewRequest("GET", "/api/user/clicks", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListClicks_RequiresIdentity(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Principal(testAdminKey))
	NewAPIHandler(APIDeps{ClickRepo: &stubClickRepository{}}).Register(app)

	req := httptest.NewRequest("GET", "/api/user/clicks", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

type stubLinkService struct {
	createFn func(ctx context.Context, input service.CreateLinkInput) (*model.AffiliateLink, error)
	getFn    func(ctx context.Context, hash string) (*model.AffiliateLink, error)
	listFn   func(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error)
	updateFn func(ctx context.Context, hash string, input service.UpdateLinkInput) (*model.AffiliateLink, error)
}

func (s *stubLinkService) CreateLink(ctx context.Context, input service.CreateLinkInput) (*model.AffiliateLink, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s *stubLinkService) GetLink(ctx context.Context, hash string) (*model.AffiliateLink, error) {
	if s.getFn != nil {
		return s.getFn(ctx, hash)
	}
	return nil, nil
}

func (s *stubLinkService) ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error) {
	if s.listFn != nil {
		return s.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (s *stubLinkService) UpdateLink(ctx context.Context, hash string, input service.UpdateLinkInput) (*model.AffiliateLink, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, hash, input)
	}
	return nil, nil
}

func TestUpdateLink_WrongOwnerForbidden(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Principal(testAdminKey))
	NewAPIHandler(APIDeps{Links: &stubLinkService{
		getFn: func(ctx context.Context, hash string) (*model.AffiliateLink, error) {
			return &model.AffiliateLink{Hash: hash, OwnerID: "user-1"}, nil
		},
		updateFn: func(ctx context.Context, hash string, input service.UpdateLinkInput) (*model.AffiliateLink, error) {
			t.Fatal("update must not run for a foreign owner")
			return nil, nil
		},
	}}).Register(app)

	req := httptest.NewRequest("PATCH", "/api/links/abc12345", strings.NewReader(`{"is_active":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-2")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUpdateLink_OwnerDeactivates(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Principal(testAdminKey))
	NewAPIHandler(APIDeps{Links: &stubLinkService{
		getFn: func(ctx context.Context, hash string) (*model.AffiliateLink, error) {
			return &model.AffiliateLink{Hash: hash, OwnerID: "user-1", IsActive: true}, nil
		},
		updateFn: func(ctx context.Context, hash string, input service.UpdateLinkInput) (*model.AffiliateLink, error) {
			if input.IsActive == nil || *input.IsActive {
				t.Fatal("expected deactivation")
			}
			return &model.AffiliateLink{Hash: hash, OwnerID: "user-1", IsActive: false}, nil
		},
	}}).Register(app)

	req := httptest.NewRequest("PATCH", "/api/links/abc12345", strings.NewReader(`{"is_active":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
