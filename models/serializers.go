package models

import "time"

// Monetary values live as exact decimals everywhere inside this package.
// Conversion to float64 happens here, once, at the boundary to the
// presentation layer, and nowhere else.

type SerializedAccount struct {
	ID               string      `json:"id"`
	UserId           string      `json:"user_id"`
	Name             string      `json:"name"`
	Type             AccountType `json:"type"`
	Balance          float64     `json:"balance"`
	IsDefault        bool        `json:"is_default"`
	TransactionCount *int64      `json:"transaction_count,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type SerializedTransaction struct {
	ID                string             `json:"id"`
	UserId            string             `json:"user_id"`
	AccountId         string             `json:"account_id"`
	Type              TransactionType    `json:"type"`
	Amount            float64            `json:"amount"`
	Description       string             `json:"description"`
	Date              time.Time          `json:"date"`
	Category          string             `json:"category"`
	ReceiptUrl        string             `json:"receipt_url,omitempty"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time         `json:"next_recurring_date,omitempty"`
	Status            TransactionStatus  `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type SerializedBudget struct {
	ID        string    `json:"id"`
	UserId    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func serializeAccount(a *Account, transactionCount *int64) SerializedAccount {
	balance, _ := a.Balance.Float64()
	return SerializedAccount{
		ID:               a.ID,
		UserId:           a.UserId,
		Name:             a.Name,
		Type:             a.Type,
		Balance:          balance,
		IsDefault:        a.IsDefault,
		TransactionCount: transactionCount,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func serializeTransaction(t *Transaction) SerializedTransaction {
	amount, _ := t.Amount.Float64()
	return SerializedTransaction{
		ID:                t.ID,
		UserId:            t.UserId,
		AccountId:         t.AccountId,
		Type:              t.Type,
		Amount:            amount,
		Description:       t.Description,
		Date:              t.Date,
		Category:          t.Category,
		ReceiptUrl:        t.ReceiptUrl,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: t.RecurringInterval,
		NextRecurringDate: t.NextRecurringDate,
		Status:            t.Status,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func serializeBudget(b *Budget) SerializedBudget {
	amount, _ := b.Amount.Float64()
	return SerializedBudget{
		ID:        b.ID,
		UserId:    b.UserId,
		Amount:    amount,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
