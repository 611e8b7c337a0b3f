package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/models"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type StatementRow struct {
	Date           time.Time              `json:"date"`
	Description    string                 `json:"description"`
	Category       string                 `json:"category"`
	Type           models.TransactionType `json:"type"`
	Amount         decimal.Decimal        `json:"amount"`
	RunningBalance decimal.Decimal        `json:"running_balance"`
}

type AccountStatement struct {
	AccountId      string          `json:"account_id"`
	AccountName    string          `json:"account_name"`
	FromDate       time.Time       `json:"from_date"`
	ToDate         time.Time       `json:"to_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Rows           []StatementRow  `json:"rows"`
}

func signedAmount(txnType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txnType == models.TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// GetAccountStatement builds a dated statement for one of the caller's
// accounts. The opening balance is derived from the cached account balance
// by backing out every entry dated on or after fromDate, so the running
// column always reconciles with the live balance.
func GetAccountStatement(ctx context.Context, accountId string, fromDate, toDate time.Time) (*AccountStatement, error) {
	user, err := models.ResolveUser(ctx)
	if err != nil {
		return nil, err
	}

	if toDate.Before(fromDate) {
		return nil, errors.New("to_date must not be before from_date")
	}

	account, err := utils.FetchModel[models.Account](ctx, user.ID, accountId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var trailing decimal.NullDecimal
	err = db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("SUM(CASE WHEN type = 'EXPENSE' THEN -amount ELSE amount END)").
		Where("account_id = ? AND user_id = ? AND date >= ?", accountId, user.ID, fromDate).
		Scan(&trailing).Error
	if err != nil {
		return nil, err
	}

	opening := account.Balance
	if trailing.Valid {
		opening = opening.Sub(trailing.Decimal)
	}

	var transactions []*models.Transaction
	err = db.WithContext(ctx).
		Where("account_id = ? AND user_id = ? AND date BETWEEN ? AND ?", accountId, user.ID, fromDate, toDate).
		Order("date ASC, created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	statement := &AccountStatement{
		AccountId:      account.ID,
		AccountName:    account.Name,
		FromDate:       fromDate,
		ToDate:         toDate,
		OpeningBalance: opening,
		Rows:           make([]StatementRow, 0, len(transactions)),
	}

	running := opening
	for _, txn := range transactions {
		signed := signedAmount(txn.Type, txn.Amount)
		running = running.Add(signed)
		statement.Rows = append(statement.Rows, StatementRow{
			Date:           txn.Date,
			Description:    txn.Description,
			Category:       txn.Category,
			Type:           txn.Type,
			Amount:         signed,
			RunningBalance: running,
		})
	}
	statement.ClosingBalance = running

	return statement, nil
}

// WriteStatementXlsx renders a statement as a spreadsheet.
func WriteStatementXlsx(statement *AccountStatement, w io.Writer) error {
	f := excelize.NewFile()
	const sheetName = "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Account")
	f.SetCellValue(sheetName, "B1", statement.AccountName)
	f.SetCellValue(sheetName, "A2", "Period")
	f.SetCellValue(sheetName, "B2", fmt.Sprintf("%s to %s",
		statement.FromDate.Format("2006-01-02"), statement.ToDate.Format("2006-01-02")))
	f.SetCellValue(sheetName, "A3", "OpeningBalance")
	f.SetCellValue(sheetName, "B3", statement.OpeningBalance.InexactFloat64())

	f.SetCellValue(sheetName, "A5", "Date")
	f.SetCellValue(sheetName, "B5", "Description")
	f.SetCellValue(sheetName, "C5", "Category")
	f.SetCellValue(sheetName, "D5", "Type")
	f.SetCellValue(sheetName, "E5", "Amount")
	f.SetCellValue(sheetName, "F5", "Balance")

	for i, row := range statement.Rows {
		rowNo := fmt.Sprint(i + 6)
		f.SetCellValue(sheetName, "A"+rowNo, row.Date.Format("2006-01-02"))
		f.SetCellValue(sheetName, "B"+rowNo, row.Description)
		f.SetCellValue(sheetName, "C"+rowNo, row.Category)
		f.SetCellValue(sheetName, "D"+rowNo, string(row.Type))
		f.SetCellValue(sheetName, "E"+rowNo, row.Amount.InexactFloat64())
		f.SetCellValue(sheetName, "F"+rowNo, row.RunningBalance.InexactFloat64())
	}

	summaryRow := fmt.Sprint(len(statement.Rows) + 7)
	f.SetCellValue(sheetName, "A"+summaryRow, "ClosingBalance")
	f.SetCellValue(sheetName, "E"+summaryRow, statement.ClosingBalance.InexactFloat64())

	return f.Write(w)
}
