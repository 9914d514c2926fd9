package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rewardshub/server/middleware"
	"github.com/rewardshub/server/models"
	"github.com/rewardshub/server/services"
	"github.com/rewardshub/server/utils"
)

// CheckinController handles daily check-in endpoints.
type CheckinController struct {
	engine *services.PointsEngine
}

// NewCheckinController creates a new controller instance.
func NewCheckinController(engine *services.PointsEngine) *CheckinController {
	return &CheckinController{engine: engine}
}

// DailyCheckin records a daily check-in and returns the updated totals.
func (c *CheckinController) DailyCheckin(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	result, err := c.engine.CheckIn(userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateCheckin):
			utils.Error(ctx, http.StatusConflict, 40030, "already checked in today")
		case errors.Is(err, services.ErrUserNotFound):
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		default:
			utils.Sugar.Errorw("check-in failed", "user_id", userID, "err", err)
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to record check-in")
		}
		return
	}

	utils.Success(ctx, result)
}

// Status returns the user's points, streak, and whether today is still open.
func (c *CheckinController) Status(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	user, err := c.engine.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load user")
		return
	}

	checkedIn, err := c.engine.HasCheckedInToday(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load check-in state")
		return
	}

	utils.Success(ctx, gin.H{
		"total_points":       user.TotalPoints,
		"current_streak":     user.CurrentStreak,
		"last_checkin_at":    user.LastCheckinAt,
		"checked_in_today":   checkedIn,
		"today":              time.Now().Format(models.DateLayout),
		"points_per_checkin": c.engine.CheckinBonus(),
	})
}

// Calendar returns the user's check-in dates ascending, feeding the streak
// calendar strip.
func (c *CheckinController) Calendar(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := 30
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 366 {
			limit = n
		}
	}

	dates, err := c.engine.CheckinDates(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load check-in dates")
		return
	}

	utils.Success(ctx, gin.H{"dates": dates})
}
