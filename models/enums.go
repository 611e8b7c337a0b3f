package models

import (
	"encoding/json"
	"errors"
)

type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

func (t *AccountType) UnmarshalJSON(b []byte) error {
	str, err := unquote(b)
	if err != nil {
		return errors.New("account type must be string")
	}
	switch AccountType(str) {
	case AccountTypeCurrent, AccountTypeSavings:
		*t = AccountType(str)
	default:
		return errors.New("invalid account type")
	}
	return nil
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

func (t *TransactionType) UnmarshalJSON(b []byte) error {
	str, err := unquote(b)
	if err != nil {
		return errors.New("transaction type must be string")
	}
	switch TransactionType(str) {
	case TransactionTypeIncome, TransactionTypeExpense:
		*t = TransactionType(str)
	default:
		return errors.New("invalid transaction type")
	}
	return nil
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

type RecurringInterval string

const (
	RecurringIntervalDaily   RecurringInterval = "DAILY"
	RecurringIntervalWeekly  RecurringInterval = "WEEKLY"
	RecurringIntervalMonthly RecurringInterval = "MONTHLY"
	RecurringIntervalYearly  RecurringInterval = "YEARLY"
)

func (t *RecurringInterval) UnmarshalJSON(b []byte) error {
	str, err := unquote(b)
	if err != nil {
		return errors.New("recurring interval must be string")
	}
	switch RecurringInterval(str) {
	case RecurringIntervalDaily, RecurringIntervalWeekly, RecurringIntervalMonthly, RecurringIntervalYearly:
		*t = RecurringInterval(str)
	default:
		return errors.New("invalid recurring interval")
	}
	return nil
}

func unquote(b []byte) (string, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return s, nil
}

// ExpenseCategories is the fixed suggestion set for EXPENSE transactions,
// also handed to the receipt classifier as the allowed output values.
var ExpenseCategories = []string{
	"housing",
	"transportation",
	"groceries",
	"utilities",
	"entertainment",
	"food",
	"shopping",
	"healthcare",
	"education",
	"personal",
	"travel",
	"insurance",
	"gifts",
	"bills",
	"other-expense",
}

// IncomeCategories is the fixed suggestion set for INCOME transactions.
var IncomeCategories = []string{
	"salary",
	"freelance",
	"investments",
	"business",
	"rental",
	"other-income",
}
