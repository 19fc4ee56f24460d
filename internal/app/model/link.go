package model

import "time"

// AffiliateLink is the core tracked-link entity stored in Postgres. The hash is
// the public token visitors redirect through; counters are denormalized
// aggregates maintained by atomic adds from the click and conversion paths.
type AffiliateLink struct {
	Hash             string    `db:"hash" gorm:"primaryKey;size:32"`
	OwnerID          string    `db:"owner_id" gorm:"size:64;not null;index"`
	DestinationURL   string    `db:"destination_url" gorm:"type:text;not null"`
	Tag              string    `db:"tag" gorm:"size:128"`
	IsActive         bool      `db:"is_active" gorm:"not null;default:true"`
	ClickCount       int64     `db:"click_count" gorm:"not null;default:0"`
	UniqueClickCount int64     `db:"unique_click_count" gorm:"not null;default:0"`
	ConversionCount  int64     `db:"conversion_count" gorm:"not null;default:0"`
	TotalRevenue     float64   `db:"total_revenue" gorm:"type:decimal(20,2);not null;default:0"`
	CreatedAt        time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName pins the table name so the hash column reads naturally in raw SQL.
func (AffiliateLink) TableName() string {
	return "affiliate_links"
}

// CounterDelta describes a single atomic adjustment to a link's aggregates.
type CounterDelta struct {
	Clicks       int64
	UniqueClicks int64
	Conversions  int64
	Revenue      float64
}

// IsZero reports whether applying the delta would be a no-op.
func (d CounterDelta) IsZero() bool {
	return d.Clicks == 0 && d.UniqueClicks == 0 && d.Conversions == 0 && d.Revenue == 0
}
