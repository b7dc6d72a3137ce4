package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testAccount(code string) *Account {
	tipo := DetectAccountType(code)
	return &Account{
		ID:         1,
		Code:       code,
		Name:       "Cuenta " + code,
		Tipo:       tipo,
		Naturaleza: DetectNaturaleza(tipo),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCorrectedPairGastoOnCredit(t *testing.T) {
	newDebit, newCredit, reason, flagged := correctedPair(testAccount("5120"), decimal.Zero, d("800000"))
	if !flagged {
		t.Fatal("GASTO with credit should be flagged")
	}
	if !newDebit.Equal(d("800000")) || !newCredit.IsZero() {
		t.Errorf("corrected pair = (%s, %s), want (800000, 0)", newDebit, newCredit)
	}
	if reason == "" {
		t.Error("expected a reason")
	}
}

func TestCorrectedPairGastoOnDebitUntouched(t *testing.T) {
	_, _, _, flagged := correctedPair(testAccount("5120"), d("800000"), decimal.Zero)
	if flagged {
		t.Error("GASTO on debit is the normal side")
	}
}

func TestCorrectedPairGastoException5905(t *testing.T) {
	_, _, _, flagged := correctedPair(testAccount("5905"), decimal.Zero, d("500000"))
	if flagged {
		t.Error("5905 increases on credit, must not be flagged")
	}
}

func TestCorrectedPairIngresoOnDebit(t *testing.T) {
	newDebit, newCredit, _, flagged := correctedPair(testAccount("4135"), d("300000"), decimal.Zero)
	if !flagged {
		t.Fatal("INGRESO with debit should be flagged")
	}
	if !newCredit.Equal(d("300000")) || !newDebit.IsZero() {
		t.Errorf("corrected pair = (%s, %s), want (0, 300000)", newDebit, newCredit)
	}
}

func TestCorrectedPairIngresoException4175(t *testing.T) {
	_, _, _, flagged := correctedPair(testAccount("4175"), d("300000"), decimal.Zero)
	if flagged {
		t.Error("4175 increases on debit, must not be flagged")
	}
}

func TestCorrectedPairPatrimonioOnDebit(t *testing.T) {
	_, newCredit, _, flagged := correctedPair(testAccount("3115"), d("100000"), decimal.Zero)
	if !flagged {
		t.Fatal("PATRIMONIO with debit should be flagged")
	}
	if !newCredit.Equal(d("100000")) {
		t.Errorf("credit = %s, want 100000", newCredit)
	}
}

func TestCorrectedPairSkipsActivoPasivo(t *testing.T) {
	for _, code := range []string{"1105", "2205"} {
		for _, side := range []struct{ debit, credit decimal.Decimal }{
			{d("500000"), decimal.Zero},
			{decimal.Zero, d("500000")},
		} {
			if _, _, _, flagged := correctedPair(testAccount(code), side.debit, side.credit); flagged {
				t.Errorf("account %s must never be flagged", code)
			}
		}
	}
}

func TestMovementCorrections(t *testing.T) {
	accounts := map[int]*Account{
		10: {ID: 10, Code: "1110", Name: "Bancos", Tipo: AccountTypeActivo, Naturaleza: NaturalezaDebito},
		20: {ID: 20, Code: "5135", Name: "Servicios", Tipo: AccountTypeGasto, Naturaleza: NaturalezaDebito},
	}
	movements := []Movement{
		{ID: 1, AccountId: 10, Debit: decimal.Zero, Credit: d("200000")},
		{ID: 2, AccountId: 20, Debit: decimal.Zero, Credit: d("200000")},
		{ID: 3, AccountId: 99, Debit: d("200000"), Credit: decimal.Zero},
	}

	corrections := movementCorrections(movements, accounts)
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(corrections))
	}
	c := corrections[0]
	if c.MovementId != 2 {
		t.Errorf("flagged movement %d, want 2", c.MovementId)
	}
	if !c.DebitCorrected.Equal(d("200000")) || !c.CreditCorrected.IsZero() {
		t.Errorf("corrected pair = (%s, %s)", c.DebitCorrected, c.CreditCorrected)
	}
}

func TestSignConventionAlerts(t *testing.T) {
	accounts := map[int]*Account{
		20: {ID: 20, Code: "5135", Name: "Servicios", Tipo: AccountTypeGasto, Naturaleza: NaturalezaDebito},
	}
	movements := []Movement{
		{ID: 2, AccountId: 20, Debit: decimal.Zero, Credit: d("200000")},
	}
	alerts := signConventionAlerts(movements, accounts)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
}
