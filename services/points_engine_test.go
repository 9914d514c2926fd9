package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rewardshub/server/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// One named in-memory database per test keeps state isolated while the
	// connection pool still shares it.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.DailyCheckin{},
		&models.PointHistory{},
		&models.Reward{},
		&models.ClaimedReward{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, points, streak int) *models.User {
	t.Helper()
	user := models.User{
		Email:         fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()),
		TotalPoints:   points,
		CurrentStreak: streak,
		ReferralCode:  NewReferralCode(),
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func createTestReward(t *testing.T, gdb *gorm.DB, name string, cost int, active bool) *models.Reward {
	t.Helper()
	reward := models.Reward{
		Name:           name,
		PointsRequired: cost,
		Active:         active,
	}
	if err := gdb.Create(&reward).Error; err != nil {
		t.Fatalf("failed to create test reward: %v", err)
	}
	return &reward
}

func historySum(t *testing.T, gdb *gorm.DB, userID uint) int {
	t.Helper()
	var sum int64
	if err := gdb.Model(&models.PointHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points),0)").
		Scan(&sum).Error; err != nil {
		t.Fatalf("failed to sum history: %v", err)
	}
	return int(sum)
}

func TestCheckInAwardsPointsAndStreak(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 0, 0)

	result, err := engine.CheckIn(user.ID)
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	if result.PointsAwarded != 5 {
		t.Fatalf("expected 5 points awarded, got %d", result.PointsAwarded)
	}
	if result.TotalPoints != 5 || result.CurrentStreak != 1 {
		t.Fatalf("unexpected totals: points=%d streak=%d", result.TotalPoints, result.CurrentStreak)
	}

	var fresh models.User
	if err := gdb.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if fresh.TotalPoints != 5 || fresh.CurrentStreak != 1 {
		t.Fatalf("persisted totals wrong: points=%d streak=%d", fresh.TotalPoints, fresh.CurrentStreak)
	}
	if fresh.LastCheckinAt == nil {
		t.Fatal("expected LastCheckinAt to be set")
	}

	var entry models.PointHistory
	if err := gdb.Where("user_id = ?", user.ID).First(&entry).Error; err != nil {
		t.Fatalf("expected a history entry: %v", err)
	}
	if entry.Points != 5 || entry.Source != models.SourceDailyCheckin {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
}

func TestCheckInRejectsSecondAttemptSameDay(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 0, 0)

	if _, err := engine.CheckIn(user.ID); err != nil {
		t.Fatalf("first CheckIn returned error: %v", err)
	}

	_, err := engine.CheckIn(user.ID)
	if !errors.Is(err, ErrDuplicateCheckin) {
		t.Fatalf("expected ErrDuplicateCheckin, got %v", err)
	}

	var fresh models.User
	if err := gdb.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if fresh.TotalPoints != 5 || fresh.CurrentStreak != 1 {
		t.Fatalf("rejected check-in mutated state: points=%d streak=%d", fresh.TotalPoints, fresh.CurrentStreak)
	}

	var count int64
	gdb.Model(&models.PointHistory{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one history entry, got %d", count)
	}
}

func TestCheckInExtendsStreakOnConsecutiveDays(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 15, 3)

	yesterday := time.Now().AddDate(0, 0, -1).Format(models.DateLayout)
	if err := gdb.Create(&models.DailyCheckin{
		UserID:       user.ID,
		CheckinDate:  yesterday,
		PointsEarned: 5,
	}).Error; err != nil {
		t.Fatalf("failed to seed yesterday's check-in: %v", err)
	}

	result, err := engine.CheckIn(user.ID)
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if result.CurrentStreak != 4 {
		t.Fatalf("expected streak 4, got %d", result.CurrentStreak)
	}
	if result.TotalPoints != 20 {
		t.Fatalf("expected 20 points, got %d", result.TotalPoints)
	}
}

func TestCheckInResetsStreakAfterGap(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 25, 5)

	threeDaysAgo := time.Now().AddDate(0, 0, -3).Format(models.DateLayout)
	if err := gdb.Create(&models.DailyCheckin{
		UserID:       user.ID,
		CheckinDate:  threeDaysAgo,
		PointsEarned: 5,
	}).Error; err != nil {
		t.Fatalf("failed to seed old check-in: %v", err)
	}

	result, err := engine.CheckIn(user.ID)
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if result.CurrentStreak != 1 {
		t.Fatalf("expected streak reset to 1, got %d", result.CurrentStreak)
	}
}

func TestRedeemDecrementsPointsAndRecordsClaim(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 100, 0)
	reward := createTestReward(t, gdb, "Coffee voucher", 40, true)

	result, err := engine.Redeem(user.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if result.PointsSpent != 40 || result.TotalPoints != 60 {
		t.Fatalf("unexpected redeem result: %+v", result)
	}

	var claim models.ClaimedReward
	if err := gdb.Where("user_id = ? AND reward_id = ?", user.ID, reward.ID).First(&claim).Error; err != nil {
		t.Fatalf("expected a claim row: %v", err)
	}

	var entry models.PointHistory
	if err := gdb.Where("user_id = ? AND source = ?", user.ID, models.SourceRewardClaim).First(&entry).Error; err != nil {
		t.Fatalf("expected a history entry: %v", err)
	}
	if entry.Points != -40 {
		t.Fatalf("expected -40 delta, got %d", entry.Points)
	}
}

func TestRedeemInsufficientPointsReportsShortfall(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 30, 0)
	reward := createTestReward(t, gdb, "Headphones", 75, true)

	_, err := engine.Redeem(user.ID, reward.ID)
	var insufficient *InsufficientPointsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientPointsError, got %v", err)
	}
	if insufficient.Shortfall() != 45 {
		t.Fatalf("expected shortfall 45, got %d", insufficient.Shortfall())
	}

	// No partial mutation.
	var fresh models.User
	gdb.First(&fresh, user.ID)
	if fresh.TotalPoints != 30 {
		t.Fatalf("points changed on rejected redeem: %d", fresh.TotalPoints)
	}
	var claims int64
	gdb.Model(&models.ClaimedReward{}).Where("user_id = ?", user.ID).Count(&claims)
	if claims != 0 {
		t.Fatalf("expected no claim rows, got %d", claims)
	}
	var entries int64
	gdb.Model(&models.PointHistory{}).Where("user_id = ?", user.ID).Count(&entries)
	if entries != 0 {
		t.Fatalf("expected no history entries, got %d", entries)
	}
}

func TestRedeemSameRewardTwice(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 100, 0)
	reward := createTestReward(t, gdb, "Sticker pack", 10, true)

	if _, err := engine.Redeem(user.ID, reward.ID); err != nil {
		t.Fatalf("first Redeem returned error: %v", err)
	}

	_, err := engine.Redeem(user.ID, reward.ID)
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	var fresh models.User
	gdb.First(&fresh, user.ID)
	if fresh.TotalPoints != 90 {
		t.Fatalf("expected points decremented exactly once, got %d", fresh.TotalPoints)
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 1000, 0)
	reward := createTestReward(t, gdb, "Mystery box", 50, false)

	// The inactive flag must survive the insert.
	var stored models.Reward
	if err := gdb.First(&stored, reward.ID).Error; err != nil {
		t.Fatalf("failed to reload reward: %v", err)
	}
	if stored.Active {
		t.Fatal("reward created inactive was stored as active")
	}

	_, err := engine.Redeem(user.ID, reward.ID)
	if !errors.Is(err, ErrRewardUnavailable) {
		t.Fatalf("expected ErrRewardUnavailable, got %v", err)
	}
}

func TestRedeemUnknownReward(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 1000, 0)

	_, err := engine.Redeem(user.ID, 9999)
	if !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("expected ErrRewardNotFound, got %v", err)
	}
}

func TestLedgerStaysConsistent(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 0, 0)
	reward := createTestReward(t, gdb, "Badge", 5, true)

	if _, err := engine.CheckIn(user.ID); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if _, err := engine.Redeem(user.ID, reward.ID); err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}

	audit, err := engine.VerifyLedger(user.ID)
	if err != nil {
		t.Fatalf("VerifyLedger returned error: %v", err)
	}
	if !audit.Consistent {
		t.Fatalf("ledger inconsistent: total=%d sum=%d", audit.TotalPoints, audit.HistorySum)
	}
	if audit.TotalPoints != 0 {
		t.Fatalf("expected balance 0, got %d", audit.TotalPoints)
	}
	if got := historySum(t, gdb, user.ID); got != 0 {
		t.Fatalf("expected history sum 0, got %d", got)
	}
}

func TestCheckinThenClaimScenario(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 0, 0)
	reward := createTestReward(t, gdb, "Starter reward", 5, true)

	result, err := engine.CheckIn(user.ID)
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if result.TotalPoints != 5 || result.CurrentStreak != 1 {
		t.Fatalf("after check-in: points=%d streak=%d", result.TotalPoints, result.CurrentStreak)
	}

	if _, err := engine.CheckIn(user.ID); !errors.Is(err, ErrDuplicateCheckin) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	redeemed, err := engine.Redeem(user.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if redeemed.TotalPoints != 0 {
		t.Fatalf("expected 0 points after claim, got %d", redeemed.TotalPoints)
	}

	ids, err := engine.ClaimedRewardIDs(user.ID)
	if err != nil {
		t.Fatalf("ClaimedRewardIDs returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != reward.ID {
		t.Fatalf("expected claimed set {%d}, got %v", reward.ID, ids)
	}
}

func TestListRewardsClassification(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 50, 0)

	cheap := createTestReward(t, gdb, "Cheap", 10, true)
	pricey := createTestReward(t, gdb, "Pricey", 200, true)
	upcoming := createTestReward(t, gdb, "Upcoming", 30, false)

	if _, err := engine.Redeem(user.ID, cheap.ID); err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}

	catalog, err := engine.ListRewards(user.ID)
	if err != nil {
		t.Fatalf("ListRewards returned error: %v", err)
	}

	if len(catalog.Rewards) != 2 {
		t.Fatalf("expected 2 active rewards, got %d", len(catalog.Rewards))
	}
	// Ascending by cost.
	if catalog.Rewards[0].ID != cheap.ID || catalog.Rewards[1].ID != pricey.ID {
		t.Fatalf("unexpected ordering: %v, %v", catalog.Rewards[0].Name, catalog.Rewards[1].Name)
	}

	// Claimed is driven by the claim row alone: after spending down to 40 the
	// user could still afford the cheap reward, but it stays claimed.
	if !catalog.Rewards[0].Claimed {
		t.Fatal("expected cheap reward to be claimed")
	}
	if catalog.Rewards[1].Claimed {
		t.Fatal("pricey reward must not be claimed")
	}
	if catalog.Rewards[1].Affordable {
		t.Fatal("pricey reward must not be affordable at 40 points")
	}
	if want := 160; catalog.Rewards[1].PointsNeeded != want {
		t.Fatalf("expected points_needed %d, got %d", want, catalog.Rewards[1].PointsNeeded)
	}

	if len(catalog.ComingSoon) != 1 || catalog.ComingSoon[0].ID != upcoming.ID {
		t.Fatalf("expected coming-soon set {%d}, got %+v", upcoming.ID, catalog.ComingSoon)
	}
}

func TestHasCheckedInTodayAndCalendar(t *testing.T) {
	gdb := setupTestDB(t)
	engine := NewPointsEngine(gdb, 5)
	user := createTestUser(t, gdb, 0, 0)

	checked, err := engine.HasCheckedInToday(user.ID)
	if err != nil {
		t.Fatalf("HasCheckedInToday returned error: %v", err)
	}
	if checked {
		t.Fatal("expected no check-in yet")
	}

	yesterday := time.Now().AddDate(0, 0, -1).Format(models.DateLayout)
	if err := gdb.Create(&models.DailyCheckin{UserID: user.ID, CheckinDate: yesterday, PointsEarned: 5}).Error; err != nil {
		t.Fatalf("failed to seed check-in: %v", err)
	}
	if _, err := engine.CheckIn(user.ID); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	checked, err = engine.HasCheckedInToday(user.ID)
	if err != nil {
		t.Fatalf("HasCheckedInToday returned error: %v", err)
	}
	if !checked {
		t.Fatal("expected check-in to be recorded")
	}

	dates, err := engine.CheckinDates(user.ID, 7)
	if err != nil {
		t.Fatalf("CheckinDates returned error: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if dates[0] != yesterday {
		t.Fatalf("expected ascending order, got %v", dates)
	}
}
