package models

import "time"

// DailyCheckin stores one row per user per calendar date. The composite
// unique index is the arbiter of the once-per-day rule; CheckinDate is a
// plain YYYY-MM-DD string so the comparison is a date, never a timestamp.
type DailyCheckin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_checkin_user_date" json:"user_id"`
	CheckinDate  string    `gorm:"size:10;not null;uniqueIndex:idx_checkin_user_date" json:"checkin_date"`
	PointsEarned int       `gorm:"not null" json:"points_earned"`
	CreatedAt    time.Time `json:"created_at"`
}

// DateLayout is the storage format for check-in calendar dates.
const DateLayout = "2006-01-02"
