package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rewardshub/server/models"
)

// referralCodeAttempts bounds retries when a generated code collides.
const referralCodeAttempts = 5

// GetOrCreateUser returns the profile for an authenticated email, creating it
// on first sight with a fresh referral code. Creation is idempotent: a lost
// race on the email unique index falls back to reading the winner's row.
func (e *PointsEngine) GetOrCreateUser(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}

	var user models.User
	err := e.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		user = models.User{Email: email, ReferralCode: NewReferralCode()}
		createErr := e.db.Create(&user).Error
		if createErr == nil {
			return &user, nil
		}
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// Either the email lost a race or the code collided; re-read to
			// tell the two apart.
			if readErr := e.db.Where("email = ?", email).First(&user).Error; readErr == nil {
				return &user, nil
			}
			continue
		}
		return nil, createErr
	}
	return nil, errors.New("could not allocate referral code")
}

// NewReferralCode produces a short uppercase share code.
func NewReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

// UserByReferralCode resolves a referral code to its owner.
func (e *PointsEngine) UserByReferralCode(code string) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	if err := e.db.Where("referral_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ReferralStats summarizes referral performance. Tracking referral
// conversions needs a dedicated table that does not exist yet, so the counts
// are fixed at zero for now.
type ReferralStats struct {
	Referrals    int `json:"referrals"`
	PointsEarned int `json:"points_earned"`
}

// GetReferralStats returns the (stubbed) referral counters for a user.
func (e *PointsEngine) GetReferralStats(userID uint) (*ReferralStats, error) {
	if _, err := e.GetUser(userID); err != nil {
		return nil, err
	}
	return &ReferralStats{}, nil
}
