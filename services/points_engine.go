package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rewardshub/server/models"
)

// DefaultCheckinBonus is awarded per daily check-in when no override is configured.
const DefaultCheckinBonus = 5

// PointsEngine applies the check-in and redemption business rules against the
// ledger store. It holds no state beyond the injected DB handle; every
// awarding/spending action writes the denormalized total and the history log
// inside one transaction so the two can never diverge.
type PointsEngine struct {
	db           *gorm.DB
	checkinBonus int
}

// NewPointsEngine creates an engine bound to the given store handle.
// A non-positive bonus falls back to DefaultCheckinBonus.
func NewPointsEngine(db *gorm.DB, checkinBonus int) *PointsEngine {
	if checkinBonus <= 0 {
		checkinBonus = DefaultCheckinBonus
	}
	return &PointsEngine{db: db, checkinBonus: checkinBonus}
}

// CheckinBonus returns the configured per-day award.
func (e *PointsEngine) CheckinBonus() int {
	return e.checkinBonus
}

// CheckinResult summarizes a successful daily check-in.
type CheckinResult struct {
	PointsAwarded int    `json:"points_awarded"`
	TotalPoints   int    `json:"total_points"`
	CurrentStreak int    `json:"current_streak"`
	CheckinDate   string `json:"checkin_date"`
}

// CheckIn records a daily check-in for the user: one check-in row, the point
// award, the streak update, and the history entry commit atomically or not at
// all. A second attempt on the same calendar date fails with
// ErrDuplicateCheckin and leaves the ledger untouched.
func (e *PointsEngine) CheckIn(userID uint) (*CheckinResult, error) {
	now := time.Now()
	today := now.Format(models.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(models.DateLayout)

	var res CheckinResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var last models.DailyCheckin
		err := tx.Where("user_id = ?", userID).Order("checkin_date DESC").First(&last).Error

		// Streak extends only across consecutive calendar dates; a gap resets it.
		streak := 1
		if err == nil {
			switch last.CheckinDate {
			case today:
				return ErrDuplicateCheckin
			case yesterday:
				streak = user.CurrentStreak + 1
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record := models.DailyCheckin{
			UserID:       userID,
			CheckinDate:  today,
			PointsEarned: e.checkinBonus,
		}
		if err := tx.Create(&record).Error; err != nil {
			// The unique index on (user_id, checkin_date) is the final arbiter
			// when two check-ins race past the read above.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCheckin
			}
			return err
		}

		user.TotalPoints += e.checkinBonus
		user.CurrentStreak = streak
		user.LastCheckinAt = &now
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		entry := models.PointHistory{
			UserID:      userID,
			Points:      e.checkinBonus,
			Source:      models.SourceDailyCheckin,
			Description: "Daily check-in bonus",
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		res = CheckinResult{
			PointsAwarded: e.checkinBonus,
			TotalPoints:   user.TotalPoints,
			CurrentStreak: user.CurrentStreak,
			CheckinDate:   today,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// HasCheckedInToday reports whether a check-in row exists for the current
// calendar date.
func (e *PointsEngine) HasCheckedInToday(userID uint) (bool, error) {
	today := time.Now().Format(models.DateLayout)
	var count int64
	if err := e.db.Model(&models.DailyCheckin{}).
		Where("user_id = ? AND checkin_date = ?", userID, today).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckinDates returns the user's check-in dates ascending, at most limit
// entries counted from the most recent. limit <= 0 returns all.
func (e *PointsEngine) CheckinDates(userID uint, limit int) ([]string, error) {
	query := e.db.Model(&models.DailyCheckin{}).
		Where("user_id = ?", userID).
		Order("checkin_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var dates []string
	if err := query.Pluck("checkin_date", &dates).Error; err != nil {
		return nil, err
	}
	// Flip to ascending for the calendar strip.
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates, nil
}

// RewardView annotates a catalog reward for one user. Claimed reflects only
// persisted claim rows; affordability is display state and never feeds the
// claimed classification.
type RewardView struct {
	models.Reward
	Claimed      bool `json:"claimed"`
	Affordable   bool `json:"affordable"`
	PointsNeeded int  `json:"points_needed"`
}

// Catalog is the full redemption view: active rewards ascending by cost plus
// inactive ones surfaced as coming soon.
type Catalog struct {
	Rewards    []RewardView    `json:"rewards"`
	ComingSoon []models.Reward `json:"coming_soon"`
}

// ActiveRewards returns claimable catalog items ascending by cost.
func (e *PointsEngine) ActiveRewards() ([]models.Reward, error) {
	var rewards []models.Reward
	if err := e.db.Where("active = ?", true).Order("points_required ASC").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// ComingSoonRewards returns inactive catalog items ascending by cost.
func (e *PointsEngine) ComingSoonRewards() ([]models.Reward, error) {
	var rewards []models.Reward
	if err := e.db.Where("active = ?", false).Order("points_required ASC").Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// ListRewards builds the catalog for a user.
func (e *PointsEngine) ListRewards(userID uint) (*Catalog, error) {
	var user models.User
	if err := e.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	active, err := e.ActiveRewards()
	if err != nil {
		return nil, err
	}
	inactive, err := e.ComingSoonRewards()
	if err != nil {
		return nil, err
	}

	claimed, err := e.ClaimedRewardIDs(userID)
	if err != nil {
		return nil, err
	}
	claimedSet := make(map[uint]struct{}, len(claimed))
	for _, id := range claimed {
		claimedSet[id] = struct{}{}
	}

	views := make([]RewardView, 0, len(active))
	for _, r := range active {
		_, isClaimed := claimedSet[r.ID]
		needed := r.PointsRequired - user.TotalPoints
		if needed < 0 {
			needed = 0
		}
		views = append(views, RewardView{
			Reward:       r,
			Claimed:      isClaimed,
			Affordable:   user.TotalPoints >= r.PointsRequired,
			PointsNeeded: needed,
		})
	}

	return &Catalog{Rewards: views, ComingSoon: inactive}, nil
}

// ClaimedRewardIDs returns the ids of rewards the user has redeemed.
func (e *PointsEngine) ClaimedRewardIDs(userID uint) ([]uint, error) {
	var ids []uint
	if err := e.db.Model(&models.ClaimedReward{}).
		Where("user_id = ?", userID).
		Pluck("reward_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// RedeemResult summarizes a successful redemption.
type RedeemResult struct {
	RewardID    uint   `json:"reward_id"`
	RewardName  string `json:"reward_name"`
	PointsSpent int    `json:"points_spent"`
	TotalPoints int    `json:"total_points"`
}

// Redeem exchanges points for a catalog reward. The claim row, the points
// decrement, and the history entry commit as one transaction; on any failure
// no partial mutation remains.
func (e *PointsEngine) Redeem(userID, rewardID uint) (*RedeemResult, error) {
	var res RedeemResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var reward models.Reward
		if err := tx.First(&reward, rewardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRewardNotFound
			}
			return err
		}
		if !reward.Active {
			return ErrRewardUnavailable
		}

		var existing int64
		if err := tx.Model(&models.ClaimedReward{}).
			Where("user_id = ? AND reward_id = ?", userID, rewardID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyClaimed
		}

		if user.TotalPoints < reward.PointsRequired {
			return &InsufficientPointsError{Required: reward.PointsRequired, Balance: user.TotalPoints}
		}

		claim := models.ClaimedReward{UserID: userID, RewardID: rewardID}
		if err := tx.Create(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyClaimed
			}
			return err
		}

		user.TotalPoints -= reward.PointsRequired
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		entry := models.PointHistory{
			UserID:      userID,
			Points:      -reward.PointsRequired,
			Source:      models.SourceRewardClaim,
			Description: "Claimed reward: " + reward.Name,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		res = RedeemResult{
			RewardID:    reward.ID,
			RewardName:  reward.Name,
			PointsSpent: reward.PointsRequired,
			TotalPoints: user.TotalPoints,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetUser loads a user profile by id.
func (e *PointsEngine) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := e.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// History returns the user's point history, newest first.
func (e *PointsEngine) History(userID uint, limit int) ([]models.PointHistory, error) {
	query := e.db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.PointHistory
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// LedgerAudit reports whether the denormalized total matches the history log.
type LedgerAudit struct {
	TotalPoints int  `json:"total_points"`
	HistorySum  int  `json:"history_sum"`
	Consistent  bool `json:"consistent"`
}

// VerifyLedger recomputes the user's balance from the append-only history and
// compares it against the stored total.
func (e *PointsEngine) VerifyLedger(userID uint) (*LedgerAudit, error) {
	user, err := e.GetUser(userID)
	if err != nil {
		return nil, err
	}

	var sum int64
	if err := e.db.Model(&models.PointHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points),0)").
		Scan(&sum).Error; err != nil {
		return nil, err
	}

	return &LedgerAudit{
		TotalPoints: user.TotalPoints,
		HistorySum:  int(sum),
		Consistent:  user.TotalPoints == int(sum),
	}, nil
}
