package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a rewards member. Passwords are stored as bcrypt hashes only.
// TotalPoints is denormalized from point_history; the engine keeps both in
// sync inside a single transaction.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	Provider      string         `gorm:"size:32" json:"provider"`
	ProviderID    string         `gorm:"size:255" json:"-"`
	TotalPoints   int            `gorm:"default:0;not null" json:"total_points"`
	CurrentStreak int            `gorm:"default:0;not null" json:"current_streak"`
	ReferralCode  string         `gorm:"size:64;uniqueIndex" json:"referral_code"`
	LastCheckinAt *time.Time     `json:"last_checkin_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
