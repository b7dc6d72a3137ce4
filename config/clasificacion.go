package config

import (
	"log"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// KeywordRule maps an expense account code to the counterparty-name keywords
// that classify into it. Rules are evaluated in declaration order; the first
// keyword hit wins.
type KeywordRule struct {
	AccountCode string   `yaml:"account_code"`
	Keywords    []string `yaml:"keywords"`
}

// ClasificacionSettings holds all tunable accounting behavior: the inverted
// sign-convention exception codes, the keyword classification tables and the
// learning-engine parameters. Deployments with a different chart of accounts
// override these through a YAML file (CLASIFICACION_CONFIG).
type ClasificacionSettings struct {
	// EmaAlpha is the smoothing factor of the running average amount per rule.
	EmaAlpha float64 `yaml:"ema_alpha"`
	// AnomalyThreshold is the relative deviation from the average amount
	// above which a classification is flagged for review (0.5 = 50%).
	AnomalyThreshold float64 `yaml:"anomaly_threshold"`
	// CancellationWindowDays is the max age for a superuser hard delete.
	CancellationWindowDays int `yaml:"cancellation_window_days"`
	// DefaultExpenseCode receives whatever no keyword rule matches.
	DefaultExpenseCode string `yaml:"default_expense_code"`
	// DebitExceptionCodes are INGRESO accounts that increase on DEBITO
	// (e.g. 4175, devoluciones en ventas).
	DebitExceptionCodes []string `yaml:"debit_exception_codes"`
	// CreditExceptionCodes are GASTO accounts that increase on CREDITO
	// (e.g. 5905, gastos recuperados).
	CreditExceptionCodes []string `yaml:"credit_exception_codes"`
	// BaseKeywords apply to every company.
	BaseKeywords []KeywordRule `yaml:"base_keywords"`
	// CompanyKeywords are layered on top of BaseKeywords per company id and
	// are checked first.
	CompanyKeywords map[string][]KeywordRule `yaml:"company_keywords"`
}

func (s *ClasificacionSettings) IsDebitException(code string) bool {
	for _, c := range s.DebitExceptionCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (s *ClasificacionSettings) IsCreditException(code string) bool {
	for _, c := range s.CreditExceptionCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (s *ClasificacionSettings) Alpha() decimal.Decimal {
	return decimal.NewFromFloat(s.EmaAlpha)
}

func (s *ClasificacionSettings) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(s.AnomalyThreshold)
}

var clasificacion = DefaultClasificacion()

func Clasificacion() *ClasificacionSettings {
	return clasificacion
}

// DefaultClasificacion returns the built-in tables for the Colombian PUC.
func DefaultClasificacion() *ClasificacionSettings {
	return &ClasificacionSettings{
		EmaAlpha:               0.3,
		AnomalyThreshold:       0.5,
		CancellationWindowDays: 2,
		DefaultExpenseCode:     "5195",
		DebitExceptionCodes:    []string{"4175"},
		CreditExceptionCodes:   []string{"5905"},
		BaseKeywords: []KeywordRule{
			{AccountCode: "5120", Keywords: []string{"arriendo", "alquiler", "renta", "arrendamiento", "lease", "canon"}},
			{AccountCode: "5105", Keywords: []string{"honorarios", "nomina", "nómina", "salario", "sueldo", "prestaciones", "personal"}},
			{AccountCode: "5135", Keywords: []string{"servicios", "aseo", "vigilancia", "limpieza"}},
			{AccountCode: "5140", Keywords: []string{"impuesto", "gravamen", "predial", "vehicular", "ica", "reteica", "iva"}},
			{AccountCode: "5130", Keywords: []string{"seguros", "póliza", "aseguradora", "poliza", "seguro"}},
			{AccountCode: "5115", Keywords: []string{"celular", "internet", "telecomunicaciones", "telefono", "teléfono", "datos", "móvil"}},
			{AccountCode: "5145", Keywords: []string{"mantenimiento", "reparación", "reparacion", "repuesto", "taller"}},
			{AccountCode: "5110", Keywords: []string{"publicidad", "propaganda", "marketing", "anuncios"}},
			{AccountCode: "5125", Keywords: []string{"papelería", "papeleria", "útiles", "utiles", "oficina"}},
			{AccountCode: "5155", Keywords: []string{"transporte", "flete", "envío", "envio", "mensajería"}},
			{AccountCode: "5160", Keywords: []string{"combustible", "gasolina", "diesel", "acpm"}},
		},
		CompanyKeywords: map[string][]KeywordRule{},
	}
}

// LoadClasificacion reads settings from a YAML file. Fields missing from the
// file keep their defaults.
func LoadClasificacion(path string) (*ClasificacionSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	settings := DefaultClasificacion()
	if err := yaml.Unmarshal(raw, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func init() {
	path := os.Getenv("CLASIFICACION_CONFIG")
	if path == "" {
		return
	}
	settings, err := LoadClasificacion(path)
	if err != nil {
		log.Printf("failed to load clasificacion config from %s: %v; using defaults", path, err)
		return
	}
	clasificacion = settings
}
