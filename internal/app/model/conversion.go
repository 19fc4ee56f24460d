package model

import "time"

// Conversion status values. The status starts at pending and is only moved by
// an admin review operation afterwards.
const (
	ConversionStatusPending  = "pending"
	ConversionStatusApproved = "approved"
	ConversionStatusRejected = "rejected"
)

// ValidConversionStatus reports whether s is one of the known status values.
func ValidConversionStatus(s string) bool {
	switch s {
	case ConversionStatusPending, ConversionStatusApproved, ConversionStatusRejected:
		return true
	}
	return false
}

// Conversion records one attributed postback. The unique index on TrackingID
// is the idempotency guarantee: concurrent duplicate postbacks race on the
// insert and exactly one wins.
type Conversion struct {
	ID                string    `db:"id" gorm:"primaryKey;size:36"`
	LinkHash          string    `db:"link_hash" gorm:"size:32;not null;index"`
	OwnerID           string    `db:"owner_id" gorm:"size:64;not null;index"`
	TrackingID        string    `db:"tracking_id" gorm:"size:36;not null;uniqueIndex"`
	PayoutAmount      float64   `db:"payout_amount" gorm:"type:decimal(20,2);not null"`
	AdvertiserRevenue float64   `db:"advertiser_revenue" gorm:"type:decimal(20,2)"`
	Status            string    `db:"status" gorm:"size:16;not null;default:pending;index"`
	IPAddress         string    `db:"ip_address" gorm:"size:45"`
	OrderID           string    `db:"order_id" gorm:"size:128"`
	Notes             string    `db:"notes" gorm:"type:text"`
	ConvertedAt       time.Time `db:"converted_at" gorm:"not null"`
	CreatedAt         time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the table name explicit for the reconciler's raw aggregates.
func (Conversion) TableName() string {
	return "conversions"
}
