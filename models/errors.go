package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the maximum accepted |debits - credits| for an entry
// to count as balanced. Monetary fields carry two fractional digits, so the
// tolerance is one cent.
var balanceTolerance = decimal.New(1, -2)

// UnbalancedEntryError reports the exact discrepancy so callers can show the
// computed totals, not a generic failure.
type UnbalancedEntryError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("el asiento no cuadra: débito $%s ≠ crédito $%s (diferencia %s)",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2),
		e.TotalDebit.Sub(e.TotalCredit).StringFixed(2))
}

// DegenerateMovementError marks a movement that is not a valid single-sided
// leg: both sides set, both sides zero, or a negative value.
type DegenerateMovementError struct {
	Index  int
	Reason string
}

func (e *DegenerateMovementError) Error() string {
	return fmt.Sprintf("movimiento %d inválido: %s", e.Index, e.Reason)
}

// InsufficientMovementsError rejects entries with fewer than two legs.
type InsufficientMovementsError struct {
	Count int
}

func (e *InsufficientMovementsError) Error() string {
	return fmt.Sprintf("la partida doble requiere al menos 2 movimientos, se recibieron %d", e.Count)
}
