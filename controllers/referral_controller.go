package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rewardshub/server/config"
	"github.com/rewardshub/server/middleware"
	"github.com/rewardshub/server/services"
	"github.com/rewardshub/server/utils"
)

// ReferralController serves referral codes and (stubbed) referral stats.
type ReferralController struct {
	engine *services.PointsEngine
}

// NewReferralController creates a ReferralController.
func NewReferralController(engine *services.PointsEngine) *ReferralController {
	return &ReferralController{engine: engine}
}

// GetReferral returns the user's share code, link, and stats.
func (r *ReferralController) GetReferral(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	user, err := r.engine.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load referral")
		return
	}

	stats, err := r.engine.GetReferralStats(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load referral")
		return
	}

	utils.Success(ctx, gin.H{
		"referral_code": user.ReferralCode,
		"referral_link": config.Get().OAuthRedirectBase + "?ref=" + user.ReferralCode,
		"stats":         stats,
	})
}

// Lookup resolves a referral code to a minimal public profile so the landing
// page can attribute the visit.
func (r *ReferralController) Lookup(ctx *gin.Context) {
	code := strings.TrimSpace(ctx.Param("code"))
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40061, "missing referral code")
		return
	}

	user, err := r.engine.UserByReferralCode(code)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40412, "referral code not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to resolve referral code")
		return
	}

	utils.Success(ctx, gin.H{
		"user_id":       user.ID,
		"referral_code": user.ReferralCode,
	})
}
