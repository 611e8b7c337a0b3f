package models

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Synthetic demo data: 90 days of randomized history for one fixed demo
// account. This is a reset-and-replace operation — it deletes the ledger
// and OVERWRITES the balance with the generated total, which is only safe
// because history is cleared in the same transaction. Normal mutations
// must keep using relative increments; do not copy this pattern.

type seedCategory struct {
	Name string
	Min  float64
	Max  float64
}

var seedCategories = map[TransactionType][]seedCategory{
	TransactionTypeIncome: {
		{Name: "salary", Min: 5000, Max: 8000},
		{Name: "freelance", Min: 1000, Max: 3000},
		{Name: "investments", Min: 500, Max: 2000},
		{Name: "other-income", Min: 100, Max: 1000},
	},
	TransactionTypeExpense: {
		{Name: "housing", Min: 1000, Max: 2000},
		{Name: "transportation", Min: 100, Max: 500},
		{Name: "groceries", Min: 200, Max: 600},
		{Name: "utilities", Min: 100, Max: 300},
		{Name: "entertainment", Min: 50, Max: 200},
		{Name: "food", Min: 50, Max: 150},
		{Name: "shopping", Min: 100, Max: 500},
		{Name: "healthcare", Min: 100, Max: 1000},
		{Name: "education", Min: 200, Max: 1000},
		{Name: "travel", Min: 500, Max: 2000},
	},
}

func randomAmount(rng *rand.Rand, min, max float64) decimal.Decimal {
	v := rng.Float64()*(max-min) + min
	return decimal.NewFromFloat(v).Round(2)
}

func randomCategory(rng *rand.Rand, txnType TransactionType) (string, decimal.Decimal) {
	categories := seedCategories[txnType]
	c := categories[rng.Intn(len(categories))]
	return c.Name, randomAmount(rng, c.Min, c.Max)
}

// BuildSeedTransactions generates the 90-day demo ledger: 1-3 transactions
// per day, 40% income / 60% expense, amounts uniform within the category's
// range. Returns the rows and their signed running total. Pure aside from
// rng so the distribution is testable.
func BuildSeedTransactions(userId, accountId string, now time.Time, rng *rand.Rand) ([]Transaction, decimal.Decimal) {
	var transactions []Transaction
	total := decimal.Zero

	for i := 90; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)

		perDay := rng.Intn(3) + 1
		for j := 0; j < perDay; j++ {
			txnType := TransactionTypeExpense
			if rng.Float64() < 0.4 {
				txnType = TransactionTypeIncome
			}
			category, amount := randomCategory(rng, txnType)

			verb := "Paid for"
			if txnType == TransactionTypeIncome {
				verb = "Received"
			}

			transactions = append(transactions, Transaction{
				ID:          uuid.NewString(),
				UserId:      userId,
				AccountId:   accountId,
				Type:        txnType,
				Amount:      amount,
				Description: fmt.Sprintf("%s %s", verb, category),
				Date:        date,
				Category:    category,
				Status:      TransactionStatusCompleted,
				CreatedAt:   date,
				UpdatedAt:   date,
			})

			total = total.Add(signedDelta(txnType, amount))
		}
	}

	return transactions, total
}

// SeedDemoTransactions wipes and regenerates the demo account's ledger.
// Serialized via redislock so two seeding runs cannot interleave; the
// delete, insert and balance overwrite are one DB transaction.
func SeedDemoTransactions(ctx context.Context) (int, error) {
	accountId := os.Getenv("DEMO_ACCOUNT_ID")
	userId := os.Getenv("DEMO_USER_ID")
	if accountId == "" || userId == "" {
		return 0, errors.New("DEMO_ACCOUNT_ID and DEMO_USER_ID are required")
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "seed:"+accountId, 2*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return 0, errors.New("another seeding run is in progress")
		}
		if err != nil {
			return 0, fmt.Errorf("could not obtain seed lock: %w", err)
		}
		defer lock.Release(ctx)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	transactions, total := BuildSeedTransactions(userId, accountId, time.Now(), rng)

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountId).
			Delete(&Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.CreateInBatches(transactions, 100).Error; err != nil {
			return err
		}
		// Overwrite, not increment: history was just cleared above.
		return tx.Model(&Account{}).
			Where("id = ?", accountId).
			Update("balance", total).Error
	})
	if err != nil {
		return 0, err
	}

	utils.MarkDashboardStale(userId)
	utils.MarkAccountStale(accountId)
	dropAccountListCache(userId)
	return len(transactions), nil
}
