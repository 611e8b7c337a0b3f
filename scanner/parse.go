package scanner

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/utils"
)

// ReceiptDraft is the transaction draft extracted from a receipt image.
// A zero-value draft (Empty() == true) means "the image is not a receipt";
// callers treat it as no draft available, not as an error.
type ReceiptDraft struct {
	Amount       float64   `json:"amount"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	MerchantName string    `json:"merchantName"`
	Category     string    `json:"category"`
}

func (d ReceiptDraft) Empty() bool {
	return d.Amount == 0 && d.Date.IsZero() && d.Description == "" && d.MerchantName == "" && d.Category == ""
}

// cleanModelJSON strips Markdown fences and stray wrapping the model adds
// when it ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

type rawReceipt struct {
	Amount       *json.Number `json:"amount"`
	Date         string       `json:"date"`
	Description  string       `json:"description"`
	MerchantName string       `json:"merchantName"`
	Category     string       `json:"category"`
}

// parseReceiptResponse turns the model's text output into a draft. `{}`
// (the model's "not a receipt" answer) yields an empty draft and no error.
func parseReceiptResponse(raw string) (*ReceiptDraft, error) {
	clean := cleanModelJSON(raw)

	var parsed rawReceipt
	if err := utils.UnmarshalFromJSON([]byte(clean), &parsed); err != nil {
		return nil, utils.ErrorReceiptParse
	}

	if parsed.Amount == nil && parsed.Date == "" && parsed.Description == "" &&
		parsed.MerchantName == "" && parsed.Category == "" {
		return &ReceiptDraft{}, nil
	}

	if parsed.Amount == nil {
		return nil, utils.ErrorReceiptParse
	}
	amount, err := parsed.Amount.Float64()
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, utils.ErrorReceiptParse
	}

	var date time.Time
	if parsed.Date != "" {
		date, err = time.Parse(time.RFC3339, parsed.Date)
		if err != nil {
			// Plain dates are common in model output.
			date, err = time.Parse("2006-01-02", parsed.Date)
			if err != nil {
				return nil, utils.ErrorReceiptParse
			}
		}
	}

	return &ReceiptDraft{
		Amount:       amount,
		Date:         date,
		Description:  parsed.Description,
		MerchantName: parsed.MerchantName,
		Category:     parsed.Category,
	}, nil
}
