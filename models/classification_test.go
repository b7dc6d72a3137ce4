package models

import (
	"testing"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/shopspring/decimal"
)

func TestUpdateStatisticsSeedsFirstAmount(t *testing.T) {
	rule := AccountingRule{}
	rule.UpdateStatistics(d("100000"))

	if !rule.AverageAmount.Decimal.Equal(d("100000")) {
		t.Errorf("average = %s, want 100000", rule.AverageAmount.Decimal)
	}
	if !rule.MinAmount.Decimal.Equal(d("100000")) || !rule.MaxAmount.Decimal.Equal(d("100000")) {
		t.Error("min and max must seed from the first amount")
	}
	if !rule.LastAmount.Decimal.Equal(d("100000")) {
		t.Errorf("last = %s", rule.LastAmount.Decimal)
	}
	if rule.ConfidenceScore != 1 {
		t.Errorf("confidence = %d, want 1", rule.ConfidenceScore)
	}
}

func TestUpdateStatisticsMovesAverage(t *testing.T) {
	rule := AccountingRule{}
	rule.UpdateStatistics(d("100000"))
	rule.UpdateStatistics(d("105000"))

	// 100000*0.7 + 105000*0.3
	if !rule.AverageAmount.Decimal.Equal(d("101500")) {
		t.Errorf("average = %s, want 101500", rule.AverageAmount.Decimal)
	}
	if rule.ConfidenceScore != 2 {
		t.Errorf("confidence = %d, want 2", rule.ConfidenceScore)
	}
	if !rule.MinAmount.Decimal.Equal(d("100000")) {
		t.Errorf("min = %s, want 100000", rule.MinAmount.Decimal)
	}
	if !rule.MaxAmount.Decimal.Equal(d("105000")) {
		t.Errorf("max = %s, want 105000", rule.MaxAmount.Decimal)
	}
}

func TestUpdateStatisticsMinMaxNeverDecay(t *testing.T) {
	rule := AccountingRule{}
	rule.UpdateStatistics(d("100000"))
	rule.UpdateStatistics(d("50000"))
	rule.UpdateStatistics(d("80000"))

	if !rule.MinAmount.Decimal.Equal(d("50000")) {
		t.Errorf("min = %s, want 50000", rule.MinAmount.Decimal)
	}
	if !rule.MaxAmount.Decimal.Equal(d("100000")) {
		t.Errorf("max = %s, want 100000", rule.MaxAmount.Decimal)
	}
	if !rule.LastAmount.Decimal.Equal(d("80000")) {
		t.Errorf("last = %s, want 80000", rule.LastAmount.Decimal)
	}
}

func TestIsAmountAnomaly(t *testing.T) {
	rule := AccountingRule{}
	rule.UpdateStatistics(d("100000"))
	rule.UpdateStatistics(d("105000"))

	// 500000 deviates far beyond 50% of 101500.
	anomalous, deviation := rule.IsAmountAnomaly(d("500000"))
	if !anomalous {
		t.Fatal("500000 should be anomalous")
	}
	if deviation.LessThanOrEqual(d("0.5")) {
		t.Errorf("deviation = %s, want > 0.5", deviation)
	}

	// The average must not move on an anomalous check.
	if !rule.AverageAmount.Decimal.Equal(d("101500")) {
		t.Errorf("average changed to %s", rule.AverageAmount.Decimal)
	}

	if anomalous, _ := rule.IsAmountAnomaly(d("110000")); anomalous {
		t.Error("110000 is within 50% of 101500")
	}
}

func TestIsAmountAnomalyZeroAverageGuard(t *testing.T) {
	unset := AccountingRule{}
	if anomalous, _ := unset.IsAmountAnomaly(d("100000")); anomalous {
		t.Error("a rule without history must never flag")
	}

	zero := AccountingRule{
		AverageAmount: decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
	}
	if anomalous, _ := zero.IsAmountAnomaly(d("100000")); anomalous {
		t.Error("a zero average must never flag")
	}
}

func TestClassifyByKeywordsBaseTable(t *testing.T) {
	settings := config.DefaultClasificacion()

	cases := []struct {
		name string
		want string
	}{
		{"Arrendamientos Bogotá SAS", "5120"},
		{"SEGUROS SURA", "5130"},
		{"Internet y datos móviles", "5115"},
		{"Proveedor Desconocido", "5195"},
	}
	for _, tc := range cases {
		code, _ := ClassifyByKeywords(settings, "company-1", tc.name)
		if code != tc.want {
			t.Errorf("ClassifyByKeywords(%q) = %s, want %s", tc.name, code, tc.want)
		}
	}
}

func TestClassifyByKeywordsCompanyOverride(t *testing.T) {
	settings := config.DefaultClasificacion()
	settings.CompanyKeywords = map[string][]config.KeywordRule{
		"company-1": {
			{AccountCode: "5199", Keywords: []string{"arriendo"}},
		},
	}

	code, _ := ClassifyByKeywords(settings, "company-1", "Arriendo local")
	if code != "5199" {
		t.Errorf("company override should win, got %s", code)
	}

	code, _ = ClassifyByKeywords(settings, "company-2", "Arriendo local")
	if code != "5120" {
		t.Errorf("other companies keep the base table, got %s", code)
	}
}

func TestClassifyByKeywordsFirstMatchWins(t *testing.T) {
	settings := config.DefaultClasificacion()
	// "servicios" appears in the 5135 rule; a name also containing a later
	// rule's keyword still takes the first hit in declaration order.
	code, _ := ClassifyByKeywords(settings, "c", "Servicios de transporte S.A.")
	if code != "5135" {
		t.Errorf("first match should win, got %s", code)
	}
}
