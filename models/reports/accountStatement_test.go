package reports

import (
	"bytes"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	if got := signedAmount(models.TransactionTypeIncome, amount); !got.Equal(amount) {
		t.Fatalf("income = %s; want %s", got, amount)
	}
	if got := signedAmount(models.TransactionTypeExpense, amount); !got.Equal(amount.Neg()) {
		t.Fatalf("expense = %s; want %s", got, amount.Neg())
	}
}

func TestWriteStatementXlsx(t *testing.T) {
	statement := &AccountStatement{
		AccountId:      "acc-1",
		AccountName:    "Main",
		FromDate:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		ToDate:         time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.RequireFromString("100"),
		ClosingBalance: decimal.RequireFromString("129.50"),
		Rows: []StatementRow{
			{
				Date:           time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
				Description:    "Received salary",
				Category:       "salary",
				Type:           models.TransactionTypeIncome,
				Amount:         decimal.RequireFromString("50"),
				RunningBalance: decimal.RequireFromString("150"),
			},
			{
				Date:           time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
				Description:    "Paid for groceries",
				Category:       "groceries",
				Type:           models.TransactionTypeExpense,
				Amount:         decimal.RequireFromString("-20.50"),
				RunningBalance: decimal.RequireFromString("129.50"),
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteStatementXlsx(statement, &buf); err != nil {
		t.Fatalf("WriteStatementXlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Sheet1", "B1")
	if err != nil || got != "Main" {
		t.Fatalf("B1 = %q (err=%v); want Main", got, err)
	}
	got, _ = f.GetCellValue("Sheet1", "A5")
	if got != "Date" {
		t.Fatalf("A5 = %q; want Date", got)
	}
	got, _ = f.GetCellValue("Sheet1", "B6")
	if got != "Received salary" {
		t.Fatalf("B6 = %q; want Received salary", got)
	}
	got, _ = f.GetCellValue("Sheet1", "D7")
	if got != "EXPENSE" {
		t.Fatalf("D7 = %q; want EXPENSE", got)
	}
	got, _ = f.GetCellValue("Sheet1", "A9")
	if got != "ClosingBalance" {
		t.Fatalf("A9 = %q; want ClosingBalance", got)
	}
}
