package models

import "time"

// ClaimedReward is the user/reward junction. The composite unique index
// enforces claim-once-per-reward at the store level, so two racing claims
// cannot both commit.
type ClaimedReward struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_claim_user_reward" json:"user_id"`
	RewardID  uint      `gorm:"not null;uniqueIndex:idx_claim_user_reward" json:"reward_id"`
	ClaimedAt time.Time `gorm:"autoCreateTime" json:"claimed_at"`
}
