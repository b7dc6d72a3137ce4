package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultClasificacion(t *testing.T) {
	settings := DefaultClasificacion()

	if !settings.IsDebitException("4175") {
		t.Error("4175 must be a debit exception")
	}
	if !settings.IsCreditException("5905") {
		t.Error("5905 must be a credit exception")
	}
	if settings.IsDebitException("4135") {
		t.Error("4135 is not an exception")
	}
	if settings.DefaultExpenseCode != "5195" {
		t.Errorf("default expense code = %s", settings.DefaultExpenseCode)
	}
	if settings.CancellationWindowDays != 2 {
		t.Errorf("cancellation window = %d", settings.CancellationWindowDays)
	}
	if !settings.Alpha().Equal(settings.Alpha()) || settings.Alpha().IsZero() {
		t.Error("alpha must be set")
	}
}

func TestLoadClasificacionOverridesDefaults(t *testing.T) {
	yaml := `
ema_alpha: 0.5
anomaly_threshold: 0.8
debit_exception_codes: ["4175", "4210"]
company_keywords:
  company-1:
    - account_code: "5199"
      keywords: ["consultoria"]
`
	path := filepath.Join(t.TempDir(), "clasificacion.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadClasificacion(path)
	if err != nil {
		t.Fatalf("LoadClasificacion: %v", err)
	}
	if settings.EmaAlpha != 0.5 {
		t.Errorf("alpha = %v", settings.EmaAlpha)
	}
	if settings.AnomalyThreshold != 0.8 {
		t.Errorf("threshold = %v", settings.AnomalyThreshold)
	}
	if !settings.IsDebitException("4210") {
		t.Error("file exceptions must apply")
	}
	// Fields missing from the file keep their defaults.
	if settings.DefaultExpenseCode != "5195" {
		t.Errorf("default expense code = %s", settings.DefaultExpenseCode)
	}
	if len(settings.CompanyKeywords["company-1"]) != 1 {
		t.Error("company keywords must load")
	}
}
