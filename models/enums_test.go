package models

import (
	"encoding/json"
	"testing"
)

func TestTransactionTypeUnmarshal(t *testing.T) {
	var tt TransactionType
	if err := json.Unmarshal([]byte(`"INCOME"`), &tt); err != nil {
		t.Fatalf("INCOME: %v", err)
	}
	if tt != TransactionTypeIncome {
		t.Fatalf("got %s; want INCOME", tt)
	}

	if err := json.Unmarshal([]byte(`"income"`), &tt); err == nil {
		t.Fatalf("expected error for lowercase value")
	}
	if err := json.Unmarshal([]byte(`123`), &tt); err == nil {
		t.Fatalf("expected error for non-string value")
	}
}

func TestAccountTypeUnmarshal(t *testing.T) {
	var at AccountType
	if err := json.Unmarshal([]byte(`"SAVINGS"`), &at); err != nil {
		t.Fatalf("SAVINGS: %v", err)
	}
	if at != AccountTypeSavings {
		t.Fatalf("got %s; want SAVINGS", at)
	}
	if err := json.Unmarshal([]byte(`"CHECKING"`), &at); err == nil {
		t.Fatalf("expected error for unknown account type")
	}
}

func TestRecurringIntervalUnmarshal(t *testing.T) {
	for _, valid := range []string{"DAILY", "WEEKLY", "MONTHLY", "YEARLY"} {
		var ri RecurringInterval
		if err := json.Unmarshal([]byte(`"`+valid+`"`), &ri); err != nil {
			t.Fatalf("%s: %v", valid, err)
		}
	}
	var ri RecurringInterval
	if err := json.Unmarshal([]byte(`"HOURLY"`), &ri); err == nil {
		t.Fatalf("expected error for unknown interval")
	}
}
