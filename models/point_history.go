package models

import "time"

// Point sources recorded in the history log.
const (
	SourceDailyCheckin = "daily_checkin"
	SourceRewardClaim  = "reward_claim"
)

// PointHistory is the append-only audit trail of point movement. Rows are
// never updated or deleted; the sum of Points per user must equal the user's
// denormalized total.
type PointHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Points      int       `gorm:"not null" json:"points"`
	Source      string    `gorm:"size:32;not null" json:"source"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
