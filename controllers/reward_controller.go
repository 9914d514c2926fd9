package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rewardshub/server/middleware"
	"github.com/rewardshub/server/models"
	"github.com/rewardshub/server/services"
	"github.com/rewardshub/server/utils"
)

const catalogCacheKey = "cache:rewards:catalog"

// RewardController serves the redemption catalog and the claim operation, plus
// the admin endpoints that manage the catalog.
type RewardController struct {
	db     *gorm.DB
	engine *services.PointsEngine
}

// NewRewardController creates a RewardController.
func NewRewardController(db *gorm.DB, engine *services.PointsEngine) *RewardController {
	return &RewardController{db: db, engine: engine}
}

// ListRewards returns the catalog annotated for the authenticated user:
// claimed comes only from persisted claim rows, affordability is display
// state alongside it.
func (r *RewardController) ListRewards(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	catalog, err := r.engine.ListRewards(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load rewards")
		return
	}

	utils.Success(ctx, catalog)
}

// PublicCatalog returns the unannotated catalog for anonymous visitors.
// Cached in Redis; admin writes invalidate it.
func (r *RewardController) PublicCatalog(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(catalogCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	active, err := r.engine.ActiveRewards()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load rewards")
		return
	}
	coming, err := r.engine.ComingSoonRewards()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load rewards")
		return
	}

	payload := gin.H{"rewards": active, "coming_soon": coming}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(catalogCacheKey, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// Claim redeems a reward for the authenticated user.
func (r *RewardController) Claim(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	rewardID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid reward id")
		return
	}

	result, err := r.engine.Redeem(userID, rewardID)
	if err != nil {
		var insufficient *services.InsufficientPointsError
		switch {
		case errors.As(err, &insufficient):
			utils.ErrorWithData(ctx, http.StatusBadRequest, 40042, "insufficient points", gin.H{
				"required":  insufficient.Required,
				"balance":   insufficient.Balance,
				"shortfall": insufficient.Shortfall(),
			})
		case errors.Is(err, services.ErrAlreadyClaimed):
			utils.Error(ctx, http.StatusConflict, 40043, "reward already claimed")
		case errors.Is(err, services.ErrRewardUnavailable):
			utils.Error(ctx, http.StatusBadRequest, 40044, "reward unavailable")
		case errors.Is(err, services.ErrRewardNotFound):
			utils.Error(ctx, http.StatusNotFound, 40420, "reward not found")
		case errors.Is(err, services.ErrUserNotFound):
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		default:
			utils.Sugar.Errorw("claim failed", "user_id", userID, "reward_id", rewardID, "err", err)
			utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to claim reward")
		}
		return
	}

	utils.Success(ctx, result)
}

// ClaimedRewards returns the ids of rewards the user has redeemed.
func (r *RewardController) ClaimedRewards(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ids, err := r.engine.ClaimedRewardIDs(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load claimed rewards")
		return
	}

	utils.Success(ctx, gin.H{"reward_ids": ids})
}

type rewardInput struct {
	Name           string `json:"name" binding:"required,max=128"`
	Description    string `json:"description"`
	PointsRequired int    `json:"points_required" binding:"min=0"`
	Icon           string `json:"icon"`
	Category       string `json:"category"`
	Active         *bool  `json:"active"`
}

// CreateReward adds a catalog item. Admin only; descriptions are sanitized
// before storage.
func (r *RewardController) CreateReward(ctx *gin.Context) {
	var req rewardInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	reward := models.Reward{
		Name:           req.Name,
		Description:    utils.Sanitize(req.Description),
		PointsRequired: req.PointsRequired,
		Icon:           req.Icon,
		Category:       req.Category,
		Active:         true,
	}
	if req.Active != nil {
		reward.Active = *req.Active
	}

	if err := r.db.Create(&reward).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to create reward")
		return
	}

	utils.InvalidateByPrefix(catalogCacheKey)
	utils.Success(ctx, reward)
}

// UpdateReward edits a catalog item. Admin only.
func (r *RewardController) UpdateReward(ctx *gin.Context) {
	rewardID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid reward id")
		return
	}

	var reward models.Reward
	if err := r.db.First(&reward, rewardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "reward not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to load reward")
		return
	}

	var req rewardInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	reward.Name = req.Name
	reward.Description = utils.Sanitize(req.Description)
	reward.PointsRequired = req.PointsRequired
	reward.Icon = req.Icon
	reward.Category = req.Category
	if req.Active != nil {
		reward.Active = *req.Active
	}

	if err := r.db.Save(&reward).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to update reward")
		return
	}

	utils.InvalidateByPrefix(catalogCacheKey)
	utils.Success(ctx, reward)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
