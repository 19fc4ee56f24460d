package repository

import (
	"context"
	"errors"

	"github.com/afftrack/afftrack/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrConversionNotFound signals an unknown conversion id.
	ErrConversionNotFound = errors.New("conversion not found")
	// ErrDuplicateConversion signals that a conversion already exists for the
	// tracking id. Advertiser postback systems retry aggressively, so this is
	// an expected outcome, not a server fault.
	ErrDuplicateConversion = errors.New("conversion already recorded for tracking id")
)

// ConversionRepository defines the data access contract for conversions.
type ConversionRepository interface {
	Insert(ctx context.Context, conv *model.Conversion) error
	GetByID(ctx context.Context, id string) (*model.Conversion, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversion, error)
	UpdateStatus(ctx context.Context, id, status, notes string) error
}

type conversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository returns a GORM-backed ConversionRepository.
func NewConversionRepository(db *gorm.DB) ConversionRepository {
	return &conversionRepository{db: db}
}

// Insert writes the conversion guarded by the unique index on tracking_id.
// ON CONFLICT DO NOTHING keeps the statement race-free: of two concurrent
// postbacks for the same tracking id exactly one inserts a row, the other sees
// RowsAffected == 0 and gets ErrDuplicateConversion.
func (r *conversionRepository) Insert(ctx context.Context, conv *model.Conversion) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tracking_id"}},
			DoNothing: true,
		}).
		Create(conv)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateConversion
	}
	return nil
}

func (r *conversionRepository) GetByID(ctx context.Context, id string) (*model.Conversion, error) {
	var conv model.Conversion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversionNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *conversionRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversion, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Conversion
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("converted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *conversionRepository) UpdateStatus(ctx context.Context, id, status, notes string) error {
	updates := map[string]interface{}{"status": status}
	if notes != "" {
		updates["notes"] = notes
	}

	result := r.db.WithContext(ctx).
		Model(&model.Conversion{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversionNotFound
	}
	return nil
}
