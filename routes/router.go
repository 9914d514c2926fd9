package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rewardshub/server/config"
	"github.com/rewardshub/server/controllers"
	"github.com/rewardshub/server/middleware"
	"github.com/rewardshub/server/services"
	"github.com/rewardshub/server/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	engine := services.NewPointsEngine(db, cfg.CheckinRewardPoints)

	authController := controllers.NewAuthController(db, engine)
	checkinController := controllers.NewCheckinController(engine)
	rewardController := controllers.NewRewardController(db, engine)
	pointsController := controllers.NewPointsController(engine)
	referralController := controllers.NewReferralController(engine)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/google/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/google/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public endpoints for the landing page
	api.GET("/rewards/catalog", rewardController.PublicCatalog)
	api.GET("/referral/:code", referralController.Lookup)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/checkin/daily", checkinController.DailyCheckin)
	protected.GET("/checkin/status", checkinController.Status)
	protected.GET("/checkin/calendar", checkinController.Calendar)
	protected.GET("/rewards", rewardController.ListRewards)
	protected.POST("/rewards/:id/claim", rewardController.Claim)
	protected.GET("/rewards/claimed", rewardController.ClaimedRewards)
	protected.GET("/points", pointsController.Balance)
	protected.GET("/points/history", pointsController.History)
	protected.GET("/points/audit", pointsController.Audit)
	protected.GET("/referral", referralController.GetReferral)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.POST("/rewards", rewardController.CreateReward)
	admin.PUT("/rewards/:id", rewardController.UpdateReward)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
