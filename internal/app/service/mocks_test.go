package service

import (
	"context"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
)

type mockLinkRepository struct {
	createFn     func(ctx context.Context, link *model.AffiliateLink) error
	getFn        func(ctx context.Context, hash string) (*model.AffiliateLink, error)
	listFn       func(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error)
	listHashesFn func(ctx context.Context) ([]string, error)
	updateFn     func(ctx context.Context, link *model.AffiliateLink) error
	incrementFn  func(ctx context.Context, hash string, delta model.CounterDelta) error
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.AffiliateLink) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByHash(ctx context.Context, hash string) (*model.AffiliateLink, error) {
	if m.getFn != nil {
		return m.getFn(ctx, hash)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) ListHashes(ctx context.Context) ([]string, error) {
	if m.listHashesFn != nil {
		return m.listHashesFn(ctx)
	}
	return nil, nil
}

func (m *mockLinkRepository) Update(ctx context.Context, link *model.AffiliateLink) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) IncrementCounters(ctx context.Context, hash string, delta model.CounterDelta) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, hash, delta)
	}
	return nil
}

type mockClickRepository struct {
	createFn func(ctx context.Context, click *model.Click) error
	getFn    func(ctx context.Context, trackingID string) (*model.Click, error)
	existsFn func(ctx context.Context, linkHash, ipAddress string, since time.Time) (bool, error)
	listFn   func(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error)
}

func (m *mockClickRepository) Create(ctx context.Context, click *model.Click) error {
	if m.createFn != nil {
		return m.createFn(ctx, click)
	}
	return nil
}

func (m *mockClickRepository) GetByTrackingID(ctx context.Context, trackingID string) (*model.Click, error) {
	if m.getFn != nil {
		return m.getFn(ctx, trackingID)
	}
	return nil, repository.ErrClickNotFound
}

func (m *mockClickRepository) ExistsSince(ctx context.Context, linkHash, ipAddress string, since time.Time) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, linkHash, ipAddress, since)
	}
	return false, nil
}

func (m *mockClickRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

type mockConversionRepository struct {
	insertFn       func(ctx context.Context, conv *model.Conversion) error
	getFn          func(ctx context.Context, id string) (*model.Conversion, error)
	listFn         func(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversion, error)
	updateStatusFn func(ctx context.Context, id, status, notes string) error
}

func (m *mockConversionRepository) Insert(ctx context.Context, conv *model.Conversion) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, conv)
	}
	return nil
}

func (m *mockConversionRepository) GetByID(ctx context.Context, id string) (*model.Conversion, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrConversionNotFound
}

func (m *mockConversionRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversion, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (m *mockConversionRepository) UpdateStatus(ctx context.Context, id, status, notes string) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, notes)
	}
	return nil
}

type mockDeduper struct {
	firstFn   func(ctx context.Context, linkHash, ipAddress string, window time.Duration) (bool, error)
	releaseFn func(ctx context.Context, linkHash, ipAddress string) error
}

func (m *mockDeduper) FirstInWindow(ctx context.Context, linkHash, ipAddress string, window time.Duration) (bool, error) {
	if m.firstFn != nil {
		return m.firstFn(ctx, linkHash, ipAddress, window)
	}
	return true, nil
}

func (m *mockDeduper) Release(ctx context.Context, linkHash, ipAddress string) error {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, linkHash, ipAddress)
	}
	return nil
}
