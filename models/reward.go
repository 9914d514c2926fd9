package models

import "time"

// Reward is a catalog item. Inactive rewards are shown as coming soon and are
// never claimable regardless of a user's balance.
type Reward struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:128;not null" json:"name"`
	Description    string    `gorm:"size:1024" json:"description"`
	PointsRequired int       `gorm:"not null" json:"points_required"`
	Icon           string    `gorm:"size:16" json:"icon"`
	Category       string    `gorm:"size:64" json:"category"`
	Active         bool      `gorm:"not null" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
