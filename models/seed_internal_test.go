package models

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildSeedTransactionsDistribution(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(1))

	transactions, total := BuildSeedTransactions("user-1", "account-1", now, rng)

	// 91 days inclusive, 1-3 entries per day.
	if len(transactions) < 91 || len(transactions) > 273 {
		t.Fatalf("expected between 91 and 273 transactions; got %d", len(transactions))
	}

	ranges := make(map[string]seedCategory)
	for _, cats := range seedCategories {
		for _, c := range cats {
			ranges[c.Name] = c
		}
	}

	sum := decimal.Zero
	earliest := now.AddDate(0, 0, -90)
	for i, txn := range transactions {
		if txn.UserId != "user-1" || txn.AccountId != "account-1" {
			t.Fatalf("transaction %d has wrong ownership: %+v", i, txn)
		}
		if txn.Type != TransactionTypeIncome && txn.Type != TransactionTypeExpense {
			t.Fatalf("transaction %d has invalid type %q", i, txn.Type)
		}
		if txn.Date.Before(earliest) || txn.Date.After(now) {
			t.Fatalf("transaction %d date %s outside the 90-day window", i, txn.Date)
		}

		r, ok := ranges[txn.Category]
		if !ok {
			t.Fatalf("transaction %d has unknown category %q", i, txn.Category)
		}
		amount := txn.Amount.InexactFloat64()
		// Round(2) can nudge the value just past the range edge.
		if amount < r.Min-0.01 || amount > r.Max+0.01 {
			t.Fatalf("transaction %d amount %v outside range [%v, %v] for %q", i, amount, r.Min, r.Max, txn.Category)
		}

		wantPrefix := "Paid for"
		if txn.Type == TransactionTypeIncome {
			wantPrefix = "Received"
		}
		if !strings.HasPrefix(txn.Description, wantPrefix) {
			t.Fatalf("transaction %d description %q does not start with %q", i, txn.Description, wantPrefix)
		}

		sum = sum.Add(signedDelta(txn.Type, txn.Amount))
	}

	if !total.Equal(sum) {
		t.Fatalf("running total %s does not match recomputed sum %s", total, sum)
	}
}

func TestBuildSeedTransactionsDeterministicPerSeed(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	first, firstTotal := BuildSeedTransactions("u", "a", now, rand.New(rand.NewSource(42)))
	second, secondTotal := BuildSeedTransactions("u", "a", now, rand.New(rand.NewSource(42)))

	if len(first) != len(second) || !firstTotal.Equal(secondTotal) {
		t.Fatalf("same seed produced different ledgers: %d/%s vs %d/%s",
			len(first), firstTotal, len(second), secondTotal)
	}
	for i := range first {
		if !first[i].Amount.Equal(second[i].Amount) || first[i].Category != second[i].Category {
			t.Fatalf("row %d differs between identical seeds", i)
		}
	}
}
