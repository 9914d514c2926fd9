package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rewardshub/server/models"
	"github.com/rewardshub/server/utils"
)

// StatsController provides aggregate program statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counters for the rewards program.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var checkinsToday int64
	var claimsCount int64
	var pointsIssued int64
	var pointsSpent int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	today := time.Now().Format(models.DateLayout)
	if err := s.db.Model(&models.DailyCheckin{}).
		Where("checkin_date = ?", today).
		Count(&checkinsToday).Error; err != nil {
		checkinsToday = 0
	}

	if err := s.db.Model(&models.ClaimedReward{}).Count(&claimsCount).Error; err != nil {
		claimsCount = 0
	}

	if err := s.db.Model(&models.PointHistory{}).
		Where("points > 0").
		Select("COALESCE(SUM(points),0)").
		Scan(&pointsIssued).Error; err != nil {
		pointsIssued = 0
	}

	if err := s.db.Model(&models.PointHistory{}).
		Where("points < 0").
		Select("COALESCE(-SUM(points),0)").
		Scan(&pointsSpent).Error; err != nil {
		pointsSpent = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":     userCount,
		"checkins_today": checkinsToday,
		"claims_count":   claimsCount,
		"points_issued":  pointsIssued,
		"points_spent":   pointsSpent,
	})
}
