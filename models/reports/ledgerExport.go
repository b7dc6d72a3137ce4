package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type ledgerSummaryRow struct {
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name"`
	Naturaleza     string          `json:"naturaleza"`
	ThirdPartyNit  string          `json:"third_party_nit"`
	ThirdPartyName string          `json:"third_party_name"`
	PreviousDebit  decimal.Decimal `json:"previous_debit"`
	PreviousCredit decimal.Decimal `json:"previous_credit"`
	MonthDebit     decimal.Decimal `json:"month_debit"`
	MonthCredit    decimal.Decimal `json:"month_credit"`
}

type ledgerDetailRow struct {
	Date           time.Time       `json:"date"`
	Number         string          `json:"number"`
	Concept        string          `json:"concept"`
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name"`
	ThirdPartyNit  string          `json:"third_party_nit"`
	ThirdPartyName string          `json:"third_party_name"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
}

// saldo computes a signed balance honoring the account's normal side.
func saldo(naturaleza string, debit, credit decimal.Decimal) decimal.Decimal {
	if naturaleza == "DEBITO" {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

func getLedgerSummary(ctx context.Context, companyId string, monthStart, monthEnd time.Time) ([]*ledgerSummaryRow, error) {

	sql := `
SELECT
    a.code AS account_code,
    a.name AS account_name,
    a.naturaleza AS naturaleza,
    tp.nit AS third_party_nit,
    tp.name AS third_party_name,
    COALESCE(SUM(CASE WHEN t.date < ? THEN m.debit ELSE 0 END), 0) AS previous_debit,
    COALESCE(SUM(CASE WHEN t.date < ? THEN m.credit ELSE 0 END), 0) AS previous_credit,
    COALESCE(SUM(CASE WHEN t.date >= ? AND t.date < ? THEN m.debit ELSE 0 END), 0) AS month_debit,
    COALESCE(SUM(CASE WHEN t.date >= ? AND t.date < ? THEN m.credit ELSE 0 END), 0) AS month_credit
FROM
    movements m
    JOIN transactions t ON t.id = m.transaction_id
    JOIN accounts a ON a.id = m.account_id
    JOIN third_parties tp ON tp.id = m.third_party_id
WHERE
    t.company_id = ?
    AND t.status = 'Active'
    AND t.date < ?
GROUP BY
    a.code, a.name, a.naturaleza, tp.nit, tp.name
ORDER BY
    a.code, tp.name
`
	var rows []*ledgerSummaryRow
	db := config.GetDB()
	err := db.WithContext(ctx).
		Raw(sql, monthStart, monthStart, monthStart, monthEnd, monthStart, monthEnd, companyId, monthEnd).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func getLedgerDetail(ctx context.Context, companyId string, monthStart, monthEnd time.Time) ([]*ledgerDetailRow, error) {

	sql := `
SELECT
    t.date AS date,
    t.number AS number,
    t.concept AS concept,
    a.code AS account_code,
    a.name AS account_name,
    tp.nit AS third_party_nit,
    tp.name AS third_party_name,
    m.description AS description,
    m.debit AS debit,
    m.credit AS credit
FROM
    movements m
    JOIN transactions t ON t.id = m.transaction_id
    JOIN accounts a ON a.id = m.account_id
    JOIN third_parties tp ON tp.id = m.third_party_id
WHERE
    t.company_id = ?
    AND t.status = 'Active'
    AND t.date >= ?
    AND t.date < ?
ORDER BY
    t.date, t.number, m.id
`
	var rows []*ledgerDetailRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(sql, companyId, monthStart, monthEnd).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportLedgerExcel builds the Libro Diario workbook for one month: a
// summary sheet with saldo anterior, movimientos del mes and saldo final per
// account and tercero, a detail sheet with every leg, and a closing balance
// check over the month's debits and credits.
func ExportLedgerExcel(ctx context.Context, year int, month time.Month) (*excelize.File, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	monthEnd := monthStart.AddDate(0, 1, 0)

	summary, err := getLedgerSummary(ctx, companyId, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	detail, err := getLedgerDetail(ctx, companyId, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	summarySheet := "Libro Diario"
	f.SetSheetName("Sheet1", summarySheet)

	headers := []string{
		"Código", "Cuenta", "NIT", "Tercero",
		"Saldo Anterior", "Débitos", "Créditos", "Saldo Final",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, h)
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	row := 2
	for _, s := range summary {
		previous := saldo(s.Naturaleza, s.PreviousDebit, s.PreviousCredit)
		final := previous.Add(saldo(s.Naturaleza, s.MonthDebit, s.MonthCredit))
		totalDebit = totalDebit.Add(s.MonthDebit)
		totalCredit = totalCredit.Add(s.MonthCredit)

		values := []interface{}{
			s.AccountCode, s.AccountName, s.ThirdPartyNit, s.ThirdPartyName,
			previous.InexactFloat64(),
			s.MonthDebit.InexactFloat64(),
			s.MonthCredit.InexactFloat64(),
			final.InexactFloat64(),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(summarySheet, cell, v)
		}
		row++
	}

	row++
	f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), "TOTALES")
	f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), totalDebit.InexactFloat64())
	f.SetCellValue(summarySheet, fmt.Sprintf("G%d", row), totalCredit.InexactFloat64())

	row++
	check := "CUADRADO"
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(decimal.New(1, -2)) {
		check = fmt.Sprintf("DESCUADRE: %s", totalDebit.Sub(totalCredit).StringFixed(2))
	}
	f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), "Verificación")
	f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), check)

	detailSheet := "Detalle del Mes"
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, err
	}

	detailHeaders := []string{
		"Fecha", "Número", "Concepto", "Código", "Cuenta",
		"NIT", "Tercero", "Descripción", "Débito", "Crédito",
	}
	for i, h := range detailHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(detailSheet, cell, h)
	}

	for i, d := range detail {
		values := []interface{}{
			d.Date.Format("2006-01-02"),
			d.Number, d.Concept, d.AccountCode, d.AccountName,
			d.ThirdPartyNit, d.ThirdPartyName, d.Description,
			d.Debit.InexactFloat64(),
			d.Credit.InexactFloat64(),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(detailSheet, cell, v)
		}
	}

	return f, nil
}
