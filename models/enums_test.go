package models

import "testing"

func TestDetectAccountType(t *testing.T) {
	cases := []struct {
		code string
		want AccountType
	}{
		{"1105", AccountTypeActivo},
		{"2205", AccountTypePasivo},
		{"3115", AccountTypePatrimonio},
		{"4135", AccountTypeIngreso},
		{"5120", AccountTypeGasto},
		{"6135", AccountTypeCosto},
		{"7105", AccountTypeCosto},
		{"8105", AccountTypeOrdenDeudor},
		{"9105", AccountTypeOrdenAcreedor},
		{"", AccountTypeActivo},
	}
	for _, tc := range cases {
		if got := DetectAccountType(tc.code); got != tc.want {
			t.Errorf("DetectAccountType(%q) = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestDetectNaturaleza(t *testing.T) {
	cases := []struct {
		tipo AccountType
		want Naturaleza
	}{
		{AccountTypeActivo, NaturalezaDebito},
		{AccountTypeGasto, NaturalezaDebito},
		{AccountTypeCosto, NaturalezaDebito},
		{AccountTypeOrdenDeudor, NaturalezaDebito},
		{AccountTypePasivo, NaturalezaCredito},
		{AccountTypePatrimonio, NaturalezaCredito},
		{AccountTypeIngreso, NaturalezaCredito},
		{AccountTypeOrdenAcreedor, NaturalezaCredito},
		{AccountType("DESCONOCIDO"), NaturalezaDebito},
	}
	for _, tc := range cases {
		if got := DetectNaturaleza(tc.tipo); got != tc.want {
			t.Errorf("DetectNaturaleza(%s) = %s, want %s", tc.tipo, got, tc.want)
		}
	}
}

func TestAccountBeforeSaveDerivesFields(t *testing.T) {
	account := Account{Code: "5120", Name: "Arrendamientos"}
	if err := account.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if account.Tipo != AccountTypeGasto {
		t.Errorf("tipo = %s, want GASTO", account.Tipo)
	}
	if account.Naturaleza != NaturalezaDebito {
		t.Errorf("naturaleza = %s, want DEBITO", account.Naturaleza)
	}
	if account.Level != 4 {
		t.Errorf("level = %d, want 4", account.Level)
	}
}

func TestAccountBeforeSaveKeepsExplicitValues(t *testing.T) {
	account := Account{Code: "4175", Tipo: AccountTypeIngreso, Naturaleza: NaturalezaDebito}
	if err := account.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if account.Naturaleza != NaturalezaDebito {
		t.Error("an explicit naturaleza must be kept")
	}
}
