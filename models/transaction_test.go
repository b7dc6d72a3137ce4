package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mov(accountId int, debit, credit string) *NewMovement {
	return &NewMovement{
		AccountId:    accountId,
		ThirdPartyId: 1,
		Debit:        decimal.RequireFromString(debit),
		Credit:       decimal.RequireFromString(credit),
	}
}

func TestReceiveMovementsBalanced(t *testing.T) {
	movements, err := receiveMovements([]*NewMovement{
		mov(1, "1000", "0"),
		mov(2, "0", "1000"),
	})
	if err != nil {
		t.Fatalf("receiveMovements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}

	tx := Transaction{Movements: movements}
	if !tx.IsBalanced() {
		t.Error("expected balanced transaction")
	}
	if !tx.TotalDebit().Equal(decimal.RequireFromString("1000")) {
		t.Errorf("TotalDebit = %s", tx.TotalDebit())
	}
	if !tx.TotalCredit().Equal(decimal.RequireFromString("1000")) {
		t.Errorf("TotalCredit = %s", tx.TotalCredit())
	}
}

func TestReceiveMovementsWithinTolerance(t *testing.T) {
	_, err := receiveMovements([]*NewMovement{
		mov(1, "1000.00", "0"),
		mov(2, "0", "1000.01"),
	})
	if err != nil {
		t.Fatalf("discrepancy of 0.01 should be accepted: %v", err)
	}
}

func TestReceiveMovementsUnbalanced(t *testing.T) {
	_, err := receiveMovements([]*NewMovement{
		mov(1, "1000.00", "0"),
		mov(2, "0", "1000.02"),
	})
	ube, ok := err.(*UnbalancedEntryError)
	if !ok {
		t.Fatalf("expected UnbalancedEntryError, got %v", err)
	}
	if !ube.TotalDebit.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("TotalDebit = %s", ube.TotalDebit)
	}
	if !ube.TotalCredit.Equal(decimal.RequireFromString("1000.02")) {
		t.Errorf("TotalCredit = %s", ube.TotalCredit)
	}
}

func TestReceiveMovementsTooFew(t *testing.T) {
	_, err := receiveMovements([]*NewMovement{mov(1, "1000", "0")})
	if _, ok := err.(*InsufficientMovementsError); !ok {
		t.Fatalf("expected InsufficientMovementsError, got %v", err)
	}
}

func TestReceiveMovementsDegenerate(t *testing.T) {
	cases := []struct {
		name      string
		movements []*NewMovement
	}{
		{"both sides set", []*NewMovement{mov(1, "500", "500"), mov(2, "0", "0")}},
		{"both sides zero", []*NewMovement{mov(1, "0", "0"), mov(2, "0", "1000")}},
		{"negative debit", []*NewMovement{mov(1, "-1000", "0"), mov(2, "0", "-1000")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := receiveMovements(tc.movements)
			if _, ok := err.(*DegenerateMovementError); !ok {
				t.Fatalf("expected DegenerateMovementError, got %v", err)
			}
		})
	}
}

func TestBuildReversalMovements(t *testing.T) {
	original := []Movement{
		{AccountId: 1, ThirdPartyId: 5, Debit: decimal.RequireFromString("1000"), Credit: decimal.Zero},
		{AccountId: 2, ThirdPartyId: 5, Debit: decimal.Zero, Credit: decimal.RequireFromString("1000")},
	}

	reversed := buildReversalMovements(original)
	if len(reversed) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(reversed))
	}
	if !reversed[0].Credit.Equal(decimal.RequireFromString("1000")) || !reversed[0].Debit.IsZero() {
		t.Errorf("leg 0 not swapped: debit=%s credit=%s", reversed[0].Debit, reversed[0].Credit)
	}
	if !reversed[1].Debit.Equal(decimal.RequireFromString("1000")) || !reversed[1].Credit.IsZero() {
		t.Errorf("leg 1 not swapped: debit=%s credit=%s", reversed[1].Debit, reversed[1].Credit)
	}

	tx := Transaction{Movements: reversed}
	if !tx.IsBalanced() {
		t.Error("reversal must be balanced")
	}
}

func TestResolveCancellation(t *testing.T) {
	cases := []struct {
		name        string
		status      TransactionStatus
		ageDays     int
		isSuperuser bool
		want        string
		wantErr     bool
	}{
		{"superuser recent", TransactionStatusActive, 0, true, CancellationActionDeleted, false},
		{"superuser at window", TransactionStatusActive, 2, true, CancellationActionDeleted, false},
		{"superuser too old", TransactionStatusActive, 3, true, CancellationActionCancelled, false},
		{"regular user recent", TransactionStatusActive, 0, false, CancellationActionCancelled, false},
		{"regular user old", TransactionStatusActive, 30, false, CancellationActionCancelled, false},
		{"already cancelled", TransactionStatusCancelled, 0, true, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := resolveCancellation(tc.status, tc.ageDays, tc.isSuperuser, 2)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveCancellation: %v", err)
			}
			if action != tc.want {
				t.Errorf("action = %s, want %s", action, tc.want)
			}
		})
	}
}

func TestTransactionAgeDays(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.Local)

	cases := []struct {
		date time.Time
		want int
	}{
		{time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local), 0},
		{time.Date(2025, 3, 9, 23, 59, 0, 0, time.Local), 1},
		{time.Date(2025, 3, 7, 1, 0, 0, 0, time.Local), 3},
	}
	for _, tc := range cases {
		if got := transactionAgeDays(tc.date, now); got != tc.want {
			t.Errorf("transactionAgeDays(%s) = %d, want %d", tc.date, got, tc.want)
		}
	}
}
