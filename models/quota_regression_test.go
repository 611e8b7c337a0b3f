package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/models"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/shopspring/decimal"
)

// A drained quota bucket must deny the next ledger write with the typed
// backoff error and leave the database untouched.
func TestTransactionQuotaExhaustion(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "wealth_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	ctx = utils.SetClerkUserIdInContext(ctx, "clerk_quota_1")
	if _, err := models.SyncUser(ctx, &models.NewUser{Email: "quota@test.local"}); err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	account, err := models.CreateAccount(ctx, &models.NewAccount{
		Name:    "Main",
		Type:    models.AccountTypeCurrent,
		Balance: "0",
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	// The bucket holds 10 tokens and each ledger write consumes one.
	for i := 0; i < 10; i++ {
		if _, err := models.CreateTransaction(ctx, &models.NewTransaction{
			AccountId: account.ID,
			Type:      models.TransactionTypeIncome,
			Amount:    decimal.RequireFromString("1"),
			Date:      time.Now(),
			Category:  "salary",
		}); err != nil {
			t.Fatalf("CreateTransaction(%d): %v", i, err)
		}
	}

	_, err = models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId: account.ID,
		Type:      models.TransactionTypeIncome,
		Amount:    decimal.RequireFromString("1"),
		Date:      time.Now(),
		Category:  "salary",
	})
	if err == nil {
		t.Fatalf("expected the 11th write to be denied")
	}
	if !utils.IsRateLimited(err) {
		t.Fatalf("expected a rate-limited error; got %v", err)
	}
	var rl *utils.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *utils.RateLimitedError; got %T", err)
	}
	if rl.Remaining != 0 {
		t.Fatalf("expected 0 remaining tokens; got %d", rl.Remaining)
	}
	if rl.ResetIn <= 0 {
		t.Fatalf("expected a positive backoff hint; got %s", rl.ResetIn)
	}

	// Denial happens before any database write.
	assertAccountBalance(t, ctx, db, account.ID, decimal.RequireFromString("10"))
	var count int64
	if err := db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ?", account.ID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected 10 transactions after denial; got %d", count)
	}
}
