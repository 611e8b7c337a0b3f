package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSignedDelta(t *testing.T) {
	amount := decimal.RequireFromString("100.50")

	if got := signedDelta(TransactionTypeIncome, amount); !got.Equal(amount) {
		t.Fatalf("income delta = %s; want %s", got, amount)
	}
	if got := signedDelta(TransactionTypeExpense, amount); !got.Equal(amount.Neg()) {
		t.Fatalf("expense delta = %s; want %s", got, amount.Neg())
	}
}

func TestCalculateNextRecurringDate(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		date     time.Time
		interval RecurringInterval
		want     time.Time
	}{
		{"daily", base, RecurringIntervalDaily, base.AddDate(0, 0, 1)},
		{"weekly", base, RecurringIntervalWeekly, base.AddDate(0, 0, 7)},
		{"monthly", base, RecurringIntervalMonthly, time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)},
		{"yearly", base, RecurringIntervalYearly, time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC)},
		{
			// Jan 31 + one month overflows February and normalizes forward.
			"monthly overflow",
			time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			RecurringIntervalMonthly,
			time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			"monthly overflow leap year",
			time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC),
			RecurringIntervalMonthly,
			time.Date(2028, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			"yearly from leap day",
			time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC),
			RecurringIntervalYearly,
			time.Date(2029, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNextRecurringDate(tc.date, tc.interval)
			if !got.Equal(tc.want) {
				t.Fatalf("calculateNextRecurringDate(%s, %s) = %s; want %s", tc.date, tc.interval, got, tc.want)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	start, end := monthBounds(now)

	if !start.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month start: %s", start)
	}
	if !end.Equal(time.Date(2026, 6, 30, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)) {
		t.Fatalf("unexpected month end: %s", end)
	}
	if !end.After(start) {
		t.Fatalf("end %s not after start %s", end, start)
	}
}

func TestSerializeTransactionAmount(t *testing.T) {
	txn := Transaction{
		ID:     "t1",
		Type:   TransactionTypeExpense,
		Amount: decimal.RequireFromString("100.50"),
	}
	s := serializeTransaction(&txn)
	if s.Amount != 100.5 {
		t.Fatalf("serialized amount = %v; want 100.5", s.Amount)
	}
}

func TestSerializeAccountTransactionCount(t *testing.T) {
	account := Account{ID: "a1", Balance: decimal.RequireFromString("10.25")}

	s := serializeAccount(&account, nil)
	if s.TransactionCount != nil {
		t.Fatalf("expected nil transaction count; got %v", *s.TransactionCount)
	}
	if s.Balance != 10.25 {
		t.Fatalf("serialized balance = %v; want 10.25", s.Balance)
	}

	count := int64(7)
	s = serializeAccount(&account, &count)
	if s.TransactionCount == nil || *s.TransactionCount != 7 {
		t.Fatalf("expected transaction count 7; got %v", s.TransactionCount)
	}
}
