package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rewardshub/server/middleware"
	"github.com/rewardshub/server/services"
	"github.com/rewardshub/server/utils"
)

// PointsController exposes the ledger: balance, history, and the consistency
// audit.
type PointsController struct {
	engine *services.PointsEngine
}

// NewPointsController creates a PointsController.
func NewPointsController(engine *services.PointsEngine) *PointsController {
	return &PointsController{engine: engine}
}

// Balance returns the user's denormalized point total and streak.
func (p *PointsController) Balance(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	user, err := p.engine.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load balance")
		return
	}

	utils.Success(ctx, gin.H{
		"total_points":   user.TotalPoints,
		"current_streak": user.CurrentStreak,
	})
}

// History returns the append-only point history, newest first.
func (p *PointsController) History(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := 50
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := p.engine.History(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load history")
		return
	}

	utils.Success(ctx, gin.H{"items": entries})
}

// Audit recomputes the balance from the history log and reports whether the
// stored total matches.
func (p *PointsController) Audit(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	audit, err := p.engine.VerifyLedger(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to audit ledger")
		return
	}

	if !audit.Consistent {
		utils.Sugar.Warnw("ledger inconsistency detected", "user_id", userID,
			"total_points", audit.TotalPoints, "history_sum", audit.HistorySum)
	}

	utils.Success(ctx, audit)
}
