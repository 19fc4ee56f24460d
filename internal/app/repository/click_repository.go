package repository

import (
	"context"
	"errors"
	"time"

	"github.com/afftrack/afftrack/internal/app/model"
	"gorm.io/gorm"
)

// ErrClickNotFound signals that no click exists for the given tracking id.
var ErrClickNotFound = errors.New("click not found")

// ClickRepository defines the data access contract for click records.
type ClickRepository interface {
	Create(ctx context.Context, click *model.Click) error
	GetByTrackingID(ctx context.Context, trackingID string) (*model.Click, error)
	ExistsSince(ctx context.Context, linkHash, ipAddress string, since time.Time) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error)
}

type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository returns a GORM-backed ClickRepository.
func NewClickRepository(db *gorm.DB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Create(ctx context.Context, click *model.Click) error {
	return r.db.WithContext(ctx).Create(click).Error
}

func (r *clickRepository) GetByTrackingID(ctx context.Context, trackingID string) (*model.Click, error) {
	var click model.Click
	if err := r.db.WithContext(ctx).Where("tracking_id = ?", trackingID).First(&click).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}
	return &click, nil
}

// ExistsSince reports whether the (link, ip) pair already clicked after the
// given cutoff. Backs the uniqueness decision when Redis is unavailable.
func (r *clickRepository) ExistsSince(ctx context.Context, linkHash, ipAddress string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Click{}).
		Where("link_hash = ? AND ip_address = ? AND timestamp >= ?", linkHash, ipAddress, since).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *clickRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Click, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Click
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
