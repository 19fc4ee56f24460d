package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/afftrack/afftrack/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested affiliate link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrHashTaken signals a hash collision on insert; callers retry with a
	// freshly generated hash.
	ErrHashTaken = errors.New("hash already taken")
)

// LinkRepository defines the data access contract for affiliate links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.AffiliateLink) error
	GetByHash(ctx context.Context, hash string) (*model.AffiliateLink, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error)
	ListHashes(ctx context.Context) ([]string, error)
	Update(ctx context.Context, link *model.AffiliateLink) error
	IncrementCounters(ctx context.Context, hash string, delta model.CounterDelta) error
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.AffiliateLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrHashTaken
		}
		return err
	}
	return nil
}

func (r *linkRepository) GetByHash(ctx context.Context, hash string) (*model.AffiliateLink, error) {
	var link model.AffiliateLink
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.AffiliateLink, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.AffiliateLink
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// ListHashes returns every known hash; used to warm the redirect bloom filter
// at startup.
func (r *linkRepository) ListHashes(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := r.db.WithContext(ctx).
		Model(&model.AffiliateLink{}).
		Pluck("hash", &hashes).Error; err != nil {
		return nil, err
	}
	return hashes, nil
}

func (r *linkRepository) Update(ctx context.Context, link *model.AffiliateLink) error {
	result := r.db.WithContext(ctx).
		Model(&model.AffiliateLink{}).
		Where("hash = ?", link.Hash).
		Updates(map[string]interface{}{
			"destination_url": link.DestinationURL,
			"tag":             link.Tag,
			"is_active":       link.IsActive,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}

	return r.db.WithContext(ctx).Where("hash = ?", link.Hash).First(link).Error
}

// IncrementCounters applies the delta as a single UPDATE with column = column + n
// expressions. The adds happen inside Postgres, so concurrent clicks and
// conversions on the same link never lose updates.
func (r *linkRepository) IncrementCounters(ctx context.Context, hash string, delta model.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}

	updates := map[string]interface{}{}
	if delta.Clicks != 0 {
		updates["click_count"] = gorm.Expr("click_count + ?", delta.Clicks)
	}
	if delta.UniqueClicks != 0 {
		updates["unique_click_count"] = gorm.Expr("unique_click_count + ?", delta.UniqueClicks)
	}
	if delta.Conversions != 0 {
		updates["conversion_count"] = gorm.Expr("conversion_count + ?", delta.Conversions)
	}
	if delta.Revenue != 0 {
		updates["total_revenue"] = gorm.Expr("total_revenue + ?", delta.Revenue)
	}

	result := r.db.WithContext(ctx).
		Model(&model.AffiliateLink{}).
		Where("hash = ?", hash).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// The core only increments after resolving the link in the same
		// request, so a miss here means the link vanished underneath us.
		return fmt.Errorf("increment counters for %q: %w", hash, ErrLinkNotFound)
	}
	return nil
}
