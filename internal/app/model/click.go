package model

import "time"

// Click is an immutable record of one redirect through a link. TrackingID is
// the opaque handle an advertiser postback later presents to attribute a
// conversion back to this click.
type Click struct {
	ID         string    `db:"id" gorm:"primaryKey;size:36"`
	TrackingID string    `db:"tracking_id" gorm:"size:36;not null;uniqueIndex"`
	LinkHash   string    `db:"link_hash" gorm:"size:32;not null;index:idx_clicks_link_ip"`
	OwnerID    string    `db:"owner_id" gorm:"size:64;not null;index"`
	IPAddress  string    `db:"ip_address" gorm:"size:45;index:idx_clicks_link_ip"`
	UserAgent  string    `db:"user_agent" gorm:"type:text"`
	Referer    string    `db:"referer" gorm:"type:text"`
	IsUnique   bool      `db:"is_unique" gorm:"not null;default:false"`
	Timestamp  time.Time `db:"timestamp" gorm:"not null;index"`
}

// TableName keeps the table name explicit for the reconciler's raw aggregates.
func (Click) TableName() string {
	return "clicks"
}
