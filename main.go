package main

import (
	"github.com/rewardshub/server/config"
	"github.com/rewardshub/server/models"
	"github.com/rewardshub/server/routes"
	"github.com/rewardshub/server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.DailyCheckin{},
		&models.PointHistory{},
		&models.Reward{},
		&models.ClaimedReward{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
