package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Account struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserId    string          `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Name      string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Type      AccountType     `gorm:"type:enum('CURRENT','SAVINGS');default:'CURRENT';not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	IsDefault bool            `gorm:"not null;default:false" json:"is_default"`

	Transactions []Transaction `gorm:"foreignKey:AccountId" json:"transactions,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// dropAccountListCache removes the cached serialized account list after a
// write that would make it stale.
func dropAccountListCache(userId string) {
	_ = utils.RemoveRedisList[SerializedAccount](userId)
}

type NewAccount struct {
	Name      string      `json:"name" binding:"required"`
	Type      AccountType `json:"type" binding:"required"`
	Balance   string      `json:"balance" binding:"required"`
	IsDefault bool        `json:"isDefault"`
}

// CreateAccount inserts a new account with its opening balance. The first
// account a user creates is always the default; when a later account is
// requested as default, the previous default is cleared in the same
// transaction so a concurrent reader never sees zero or two defaults.
func CreateAccount(ctx context.Context, input *NewAccount) (*SerializedAccount, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	// Opening balance arrives as a decimal string; reject anything that
	// does not parse exactly.
	balance, err := decimal.NewFromString(input.Balance)
	if err != nil {
		return nil, utils.ErrorInvalidAmount
	}

	db := config.GetDB()

	var existingCount int64
	if err := db.WithContext(ctx).Model(&Account{}).
		Where("user_id = ?", user.ID).Count(&existingCount).Error; err != nil {
		return nil, err
	}

	shouldBeDefault := input.IsDefault
	if existingCount == 0 {
		shouldBeDefault = true
	}

	account := Account{
		UserId:    user.ID,
		Name:      input.Name,
		Type:      input.Type,
		Balance:   balance,
		IsDefault: shouldBeDefault,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if shouldBeDefault {
			if err := tx.Model(&Account{}).
				Where("user_id = ? AND is_default = ?", user.ID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return nil, err
	}

	utils.MarkDashboardStale(user.ID)
	dropAccountListCache(user.ID)
	serialized := serializeAccount(&account, nil)
	return &serialized, nil
}

// GetUserAccounts lists the user's accounts newest first, each annotated
// with its transaction count. The serialized list is cached in redis and
// dropped by every mutation that changes an account row, a balance or a
// transaction count; a cold or unreachable cache falls through to the DB.
func GetUserAccounts(ctx context.Context) ([]*SerializedAccount, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	if cached, err := utils.RetrieveRedisList[SerializedAccount](user.ID); err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var accounts []*Account
	if err := db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&accounts).Error; err != nil {
		return nil, err
	}

	results := make([]*SerializedAccount, 0, len(accounts))
	for _, account := range accounts {
		var count int64
		if err := db.WithContext(ctx).Model(&Transaction{}).
			Where("account_id = ?", account.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		serialized := serializeAccount(account, &count)
		results = append(results, &serialized)
	}

	_ = utils.StoreRedisList[SerializedAccount](results, user.ID)
	return results, nil
}

// UpdateDefaultAccount makes the target account the user's default. The
// clear-others and set-target writes run inside one DB transaction so the
// at-most-one-default invariant holds for every observer.
func UpdateDefaultAccount(ctx context.Context, accountId string) (*SerializedAccount, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[Account](ctx, user.ID, accountId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Account{}).
			Where("user_id = ? AND is_default = ? AND id <> ?", user.ID, true, accountId).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&Account{}).
			Where("id = ? AND user_id = ?", accountId, user.ID).
			Update("is_default", true).Error
	})
	if err != nil {
		return nil, err
	}

	account.IsDefault = true
	utils.MarkDashboardStale(user.ID)
	dropAccountListCache(user.ID)
	serialized := serializeAccount(account, nil)
	return &serialized, nil
}

type AccountWithTransactions struct {
	SerializedAccount
	Transactions     []SerializedTransaction `json:"transactions"`
	TransactionCount int64                   `json:"transaction_count"`
}

// GetAccountWithTransactions returns the account plus its full ledger,
// newest entries first.
func GetAccountWithTransactions(ctx context.Context, accountId string) (*AccountWithTransactions, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var account Account
	err = db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountId, user.ID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	var transactions []*Transaction
	if err := db.WithContext(ctx).
		Where("account_id = ? AND user_id = ?", accountId, user.ID).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}

	serializedTxns := make([]SerializedTransaction, 0, len(transactions))
	for _, txn := range transactions {
		serializedTxns = append(serializedTxns, serializeTransaction(txn))
	}

	count := int64(len(transactions))
	return &AccountWithTransactions{
		SerializedAccount: serializeAccount(&account, &count),
		Transactions:      serializedTxns,
		TransactionCount:  count,
	}, nil
}
