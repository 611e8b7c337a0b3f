package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/guard"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Transaction struct {
	ID                string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserId            string             `gorm:"type:varchar(36);index;not null" json:"user_id"`
	AccountId         string             `gorm:"type:varchar(36);index;not null" json:"account_id"`
	Type              TransactionType    `gorm:"type:enum('INCOME','EXPENSE');not null" json:"type"`
	Amount            decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description       string             `gorm:"type:text" json:"description"`
	Date              time.Time          `gorm:"index;not null" json:"date"`
	Category          string             `gorm:"size:50;not null" json:"category"`
	ReceiptUrl        string             `gorm:"type:text" json:"receipt_url"`
	IsRecurring       bool               `gorm:"not null;default:false" json:"is_recurring"`
	RecurringInterval *RecurringInterval `gorm:"type:enum('DAILY','WEEKLY','MONTHLY','YEARLY')" json:"recurring_interval"`
	NextRecurringDate *time.Time         `json:"next_recurring_date"`
	LastProcessed     *time.Time         `json:"last_processed"`
	Status            TransactionStatus  `gorm:"type:enum('PENDING','COMPLETED','FAILED');default:'COMPLETED';not null" json:"status"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type NewTransaction struct {
	AccountId         string             `json:"accountId" binding:"required"`
	Type              TransactionType    `json:"type" binding:"required"`
	Amount            decimal.Decimal    `json:"amount" binding:"required"`
	Description       string             `json:"description"`
	Date              time.Time          `json:"date" binding:"required"`
	Category          string             `json:"category" binding:"required"`
	ReceiptUrl        string             `json:"receiptUrl"`
	IsRecurring       bool               `json:"isRecurring"`
	RecurringInterval *RecurringInterval `json:"recurringInterval"`
}

// signedDelta is the balance effect of a transaction: income adds, expense
// subtracts. Amounts are stored non-negative; the sign lives in the type.
func signedDelta(txnType TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txnType == TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// calculateNextRecurringDate advances date by one interval using
// calendar-aware arithmetic. Month and year steps normalize overflow the
// way time.AddDate does: Jan 31 + MONTHLY lands on Mar 3 (Mar 2 in leap
// years), never on a fabricated Feb 31.
func calculateNextRecurringDate(date time.Time, interval RecurringInterval) time.Time {
	switch interval {
	case RecurringIntervalDaily:
		return date.AddDate(0, 0, 1)
	case RecurringIntervalWeekly:
		return date.AddDate(0, 0, 7)
	case RecurringIntervalMonthly:
		return date.AddDate(0, 1, 0)
	case RecurringIntervalYearly:
		return date.AddDate(1, 0, 0)
	}
	return date
}

// CreateTransaction records a ledger entry and moves the account balance by
// the signed amount. The row insert and the balance increment commit
// together or not at all; the quota check runs strictly before either.
func CreateTransaction(ctx context.Context, input *NewTransaction) (*SerializedTransaction, error) {
	clerkUserId, ok := utils.GetClerkUserIdFromContext(ctx)
	if !ok || clerkUserId == "" {
		return nil, utils.ErrorUnauthorized
	}

	// Abuse check first: a denial must leave the store untouched.
	if err := guard.Check(ctx, clerkUserId, 1); err != nil {
		return nil, err
	}

	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.Amount.IsNegative() {
		return nil, utils.ErrorInvalidAmount
	}

	if err := utils.ValidateResourceId[Account](ctx, user.ID, input.AccountId); err != nil {
		return nil, err
	}

	delta := signedDelta(input.Type, input.Amount)

	var nextRecurringDate *time.Time
	if input.IsRecurring && input.RecurringInterval != nil {
		next := calculateNextRecurringDate(input.Date, *input.RecurringInterval)
		nextRecurringDate = &next
	}

	transaction := Transaction{
		UserId:            user.ID,
		AccountId:         input.AccountId,
		Type:              input.Type,
		Amount:            input.Amount,
		Description:       input.Description,
		Date:              input.Date,
		Category:          input.Category,
		ReceiptUrl:        input.ReceiptUrl,
		IsRecurring:       input.IsRecurring,
		RecurringInterval: input.RecurringInterval,
		NextRecurringDate: nextRecurringDate,
		Status:            TransactionStatusCompleted,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		// Relative increment, never read-modify-write: concurrent
		// transactions on the same account must not lose updates.
		return tx.Model(&Account{}).
			Where("id = ? AND user_id = ?", input.AccountId, user.ID).
			Update("balance", gorm.Expr("balance + ?", delta)).Error
	})
	if err != nil {
		return nil, err
	}

	utils.MarkDashboardStale(user.ID)
	utils.MarkAccountStale(input.AccountId)
	dropAccountListCache(user.ID)

	serialized := serializeTransaction(&transaction)
	return &serialized, nil
}

// GetTransaction fetches one ledger entry scoped to the caller.
func GetTransaction(ctx context.Context, id string) (*SerializedTransaction, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	transaction, err := utils.FetchModel[Transaction](ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	serialized := serializeTransaction(transaction)
	return &serialized, nil
}

// BulkDeleteTransactions removes the caller's transactions from the id set
// and reverses their balance effect per account. Ids the caller does not
// own are silently excluded; the delete and every balance increment commit
// as one unit.
func BulkDeleteTransactions(ctx context.Context, ids []string) error {
	user, err := ResolveUser(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	db := config.GetDB()
	accountDeltas := make(map[string]decimal.Decimal)
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the matching rows so a concurrent delete of the same ids
		// blocks here instead of reversing the same balance twice. The
		// deltas must come from the rows this transaction will delete.
		var transactions []*Transaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ? AND user_id = ?", ids, user.ID).
			Find(&transactions).Error; err != nil {
			return err
		}
		if len(transactions) == 0 {
			return nil
		}

		// Reversal: deleting an expense gives the money back, deleting
		// income takes it away. Inverse of signedDelta, per account.
		matchedIds := make([]string, 0, len(transactions))
		for _, txn := range transactions {
			accountDeltas[txn.AccountId] = accountDeltas[txn.AccountId].Sub(signedDelta(txn.Type, txn.Amount))
			matchedIds = append(matchedIds, txn.ID)
		}

		if err := tx.Where("id IN ? AND user_id = ?", matchedIds, user.ID).
			Delete(&Transaction{}).Error; err != nil {
			return err
		}
		for accountId, delta := range accountDeltas {
			if err := tx.Model(&Account{}).
				Where("id = ? AND user_id = ?", accountId, user.ID).
				Update("balance", gorm.Expr("balance + ?", delta)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(accountDeltas) == 0 {
		return nil
	}

	utils.MarkDashboardStale(user.ID)
	dropAccountListCache(user.ID)
	for accountId := range accountDeltas {
		utils.MarkAccountStale(accountId)
	}
	return nil
}

// LedgerSum recomputes the signed transaction sum for an account. The
// cached balance must always equal the opening balance plus this sum;
// integration tests and reconciliation tooling lean on it. Production
// mutations never overwrite the balance from it.
func LedgerSum(ctx context.Context, accountId string) (decimal.Decimal, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	db := config.GetDB()
	var rows []*Transaction
	if err := db.WithContext(ctx).
		Where("account_id = ? AND user_id = ?", accountId, user.ID).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, txn := range rows {
		sum = sum.Add(signedDelta(txn.Type, txn.Amount))
	}
	return sum, nil
}
