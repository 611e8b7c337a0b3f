package scanner

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/utils"
)

func TestCleanModelJSONStripsFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"amount": 12}`, `{"amount": 12}`},
		{"fenced", "```json\n{\"amount\": 12}\n```", `{"amount": 12}`},
		{"fenced no lang", "```\n{\"amount\": 12}\n```", `{"amount": 12}`},
		{"leading whitespace", "  \n```json\n{}\n```  ", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cleanModelJSON(tc.in)
			if got != tc.want {
				t.Fatalf("cleanModelJSON(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseReceiptResponseFullDraft(t *testing.T) {
	raw := "```json\n" + `{
		"amount": 42.75,
		"date": "2026-03-15",
		"description": "Groceries at corner store",
		"merchantName": "Corner Store",
		"category": "groceries"
	}` + "\n```"

	draft, err := parseReceiptResponse(raw)
	if err != nil {
		t.Fatalf("parseReceiptResponse: %v", err)
	}
	if draft.Amount != 42.75 {
		t.Fatalf("expected amount 42.75; got %v", draft.Amount)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !draft.Date.Equal(want) {
		t.Fatalf("expected date %s; got %s", want, draft.Date)
	}
	if draft.MerchantName != "Corner Store" || draft.Category != "groceries" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if draft.Empty() {
		t.Fatalf("full draft reported Empty()")
	}
}

func TestParseReceiptResponseRFC3339Date(t *testing.T) {
	draft, err := parseReceiptResponse(`{"amount": 10, "date": "2026-03-15T08:30:00Z", "description": "x", "merchantName": "y", "category": "food"}`)
	if err != nil {
		t.Fatalf("parseReceiptResponse: %v", err)
	}
	if draft.Date.Hour() != 8 || draft.Date.Minute() != 30 {
		t.Fatalf("expected RFC3339 time preserved; got %s", draft.Date)
	}
}

func TestParseReceiptResponseNotAReceipt(t *testing.T) {
	// The model answers {} when the image is not a receipt. That is a
	// valid outcome, not a parse failure.
	draft, err := parseReceiptResponse("{}")
	if err != nil {
		t.Fatalf("expected no error for empty object; got %v", err)
	}
	if !draft.Empty() {
		t.Fatalf("expected empty draft; got %+v", draft)
	}
}

func TestParseReceiptResponseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"not json", "the receipt shows a total of $12"},
		{"missing amount", `{"date": "2026-03-15", "description": "x", "merchantName": "y", "category": "food"}`},
		{"bad date", `{"amount": 10, "date": "15/03/2026"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseReceiptResponse(tc.in)
			if !errors.Is(err, utils.ErrorReceiptParse) {
				t.Fatalf("expected ErrorReceiptParse; got %v", err)
			}
		})
	}
}
