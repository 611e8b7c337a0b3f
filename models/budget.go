package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Budget struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserId        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Budget) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type BudgetStatus struct {
	Budget          *SerializedBudget `json:"budget"`
	CurrentExpenses float64           `json:"currentExpenses"`
}

// monthBounds returns the first and last instant of now's calendar month.
func monthBounds(now time.Time) (time.Time, time.Time) {
	year, month, _ := now.Date()
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// currentMonthExpenses sums EXPENSE amounts for one account inside the
// current calendar month.
func currentMonthExpenses(ctx context.Context, userId, accountId string, now time.Time) (decimal.Decimal, error) {
	start, end := monthBounds(now)

	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&Transaction{}).
		Select("SUM(amount)").
		Where("user_id = ? AND account_id = ? AND type = ? AND date BETWEEN ? AND ?",
			userId, accountId, TransactionTypeExpense, start, end).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// GetCurrentBudget returns the user's budget ceiling (nil when none is set)
// together with the current month's expense total for the given account.
// The ceiling is user-global while the expense sum is account-scoped; that
// asymmetry matches the product behavior and is kept deliberately.
func GetCurrentBudget(ctx context.Context, accountId string) (*BudgetStatus, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var budget Budget
	var serialized *SerializedBudget
	err = db.WithContext(ctx).Where("user_id = ?", user.ID).First(&budget).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		s := serializeBudget(&budget)
		serialized = &s
	}

	expenses, err := currentMonthExpenses(ctx, user.ID, accountId, time.Now())
	if err != nil {
		return nil, err
	}
	expensesFloat, _ := expenses.Float64()

	return &BudgetStatus{
		Budget:          serialized,
		CurrentExpenses: expensesFloat,
	}, nil
}

// UpdateBudget upserts the user's single budget row. No history of prior
// ceilings is kept.
func UpdateBudget(ctx context.Context, amount decimal.Decimal) (*SerializedBudget, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, utils.ErrorInvalidAmount
	}

	budget := Budget{
		UserId: user.ID,
		Amount: amount,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&budget).Error
	if err != nil {
		return nil, err
	}

	var saved Budget
	if err := db.WithContext(ctx).Where("user_id = ?", user.ID).First(&saved).Error; err != nil {
		return nil, err
	}

	utils.MarkDashboardStale(user.ID)
	serialized := serializeBudget(&saved)
	return &serialized, nil
}

type budgetAlertPayload struct {
	BudgetAmount   float64 `json:"budget_amount"`
	TotalExpenses  float64 `json:"total_expenses"`
	PercentageUsed float64 `json:"percentage_used"`
	AccountId      string  `json:"account_id"`
	AccountName    string  `json:"account_name"`
}

// CheckBudgetAlerts scans every budget and enqueues one notification event
// per user whose default-account spending reached 80% of the ceiling this
// month. At most one alert fires per calendar month (last_alert_sent
// guard). Delivery is the downstream side channel's job.
func CheckBudgetAlerts(ctx context.Context) (int, error) {
	db := config.GetDB()
	now := time.Now()

	var budgets []*Budget
	if err := db.WithContext(ctx).Find(&budgets).Error; err != nil {
		return 0, err
	}

	fired := 0
	for _, budget := range budgets {
		if budget.LastAlertSent != nil &&
			budget.LastAlertSent.Year() == now.Year() &&
			budget.LastAlertSent.Month() == now.Month() {
			continue
		}
		if budget.Amount.IsZero() {
			continue
		}

		var account Account
		err := db.WithContext(ctx).
			Where("user_id = ? AND is_default = ?", budget.UserId, true).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fired, err
		}

		expenses, err := currentMonthExpenses(ctx, budget.UserId, account.ID, now)
		if err != nil {
			return fired, err
		}

		percentage := expenses.Div(budget.Amount).Mul(decimal.NewFromInt(100))
		if percentage.LessThan(decimal.NewFromInt(80)) {
			continue
		}

		budgetFloat, _ := budget.Amount.Float64()
		expensesFloat, _ := expenses.Float64()
		percentageFloat, _ := percentage.Float64()
		payload, err := utils.MarshalToJSON(budgetAlertPayload{
			BudgetAmount:   budgetFloat,
			TotalExpenses:  expensesFloat,
			PercentageUsed: percentageFloat,
			AccountId:      account.ID,
			AccountName:    account.Name,
		})
		if err != nil {
			return fired, err
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := EnqueueNotification(ctx, tx, budget.UserId, NotificationEventBudgetAlert, json.RawMessage(payload)); err != nil {
				return err
			}
			return tx.Model(&Budget{}).
				Where("id = ?", budget.ID).
				Update("last_alert_sent", now).Error
		})
		if err != nil {
			return fired, err
		}
		fired++
	}

	return fired, nil
}
