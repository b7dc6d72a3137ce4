package reports

import (
	"context"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	MonthIncome       decimal.Decimal    `json:"month_income"`
	MonthExpense      decimal.Decimal    `json:"month_expense"`
	MonthBalance      decimal.Decimal    `json:"month_balance"`
	TotalTransactions int                `json:"total_transactions"`
	TopExpenses       []TopExpenseDetail `json:"top_expenses"`
}

type TopExpenseDetail struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

const dashboardCacheTTL = 10 * time.Minute

func dashboardCacheKey(companyId string) string {
	return "dashboard_" + companyId
}

// GetDashboard summarises the current month: income, expenses and the top
// expense accounts. Results are cached per company until a ledger write
// invalidates them.
func GetDashboard(ctx context.Context) (*DashboardResponse, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	var cached DashboardResponse
	if found, err := config.GetRedisObject(dashboardCacheKey(companyId), &cached); err == nil && found {
		return &cached, nil
	}

	db := config.GetDB()

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	monthEnd := monthStart.AddDate(0, 1, 0)

	totalsQuery := `
SELECT
    COALESCE(SUM(CASE WHEN a.tipo = 'INGRESO' THEN m.credit - m.debit ELSE 0 END), 0) AS month_income,
    COALESCE(SUM(CASE WHEN a.tipo IN ('GASTO', 'COSTO') THEN m.debit - m.credit ELSE 0 END), 0) AS month_expense
FROM
    movements m
    JOIN transactions t ON t.id = m.transaction_id
    JOIN accounts a ON a.id = m.account_id
WHERE
    t.company_id = ?
    AND t.status = 'Active'
    AND t.date >= ?
    AND t.date < ?
`
	var totals struct {
		MonthIncome  decimal.Decimal
		MonthExpense decimal.Decimal
	}
	if err := db.WithContext(ctx).Raw(totalsQuery, companyId, monthStart, monthEnd).Scan(&totals).Error; err != nil {
		return nil, err
	}

	var transactionCount int64
	if err := db.WithContext(ctx).Raw(
		"SELECT COUNT(*) FROM transactions WHERE company_id = ? AND status = 'Active'",
		companyId).Scan(&transactionCount).Error; err != nil {
		return nil, err
	}

	topExpensesQuery := `
SELECT
    a.code AS account_code,
    a.name AS account_name,
    SUM(m.debit - m.credit) AS amount
FROM
    movements m
    JOIN transactions t ON t.id = m.transaction_id
    JOIN accounts a ON a.id = m.account_id
WHERE
    t.company_id = ?
    AND t.status = 'Active'
    AND t.date >= ?
    AND t.date < ?
    AND a.tipo IN ('GASTO', 'COSTO')
GROUP BY
    a.code, a.name
HAVING
    amount > 0
ORDER BY
    amount DESC
LIMIT 5
`
	var topExpenses []TopExpenseDetail
	if err := db.WithContext(ctx).Raw(topExpensesQuery, companyId, monthStart, monthEnd).Scan(&topExpenses).Error; err != nil {
		return nil, err
	}

	response := DashboardResponse{
		MonthIncome:       totals.MonthIncome,
		MonthExpense:      totals.MonthExpense,
		MonthBalance:      totals.MonthIncome.Sub(totals.MonthExpense),
		TotalTransactions: int(transactionCount),
		TopExpenses:       topExpenses,
	}

	if err := config.SetRedisObject(dashboardCacheKey(companyId), &response, dashboardCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "reports", "GetDashboard", "cache set", companyId, err)
	}
	return &response, nil
}
