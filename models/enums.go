package models

// AccountType is the PUC account class ("tipo").
type AccountType string

const (
	AccountTypeActivo        AccountType = "ACTIVO"
	AccountTypePasivo        AccountType = "PASIVO"
	AccountTypePatrimonio    AccountType = "PATRIMONIO"
	AccountTypeIngreso       AccountType = "INGRESO"
	AccountTypeGasto         AccountType = "GASTO"
	AccountTypeCosto         AccountType = "COSTO"
	AccountTypeOrdenDeudor   AccountType = "ORDEN_DEUDOR"
	AccountTypeOrdenAcreedor AccountType = "ORDEN_ACREEDOR"
)

// Naturaleza is the side on which an account normally increases.
type Naturaleza string

const (
	NaturalezaDebito  Naturaleza = "DEBITO"
	NaturalezaCredito Naturaleza = "CREDITO"
)

// accountTypeByDigit maps the first digit of a PUC code to its class.
var accountTypeByDigit = map[byte]AccountType{
	'1': AccountTypeActivo,
	'2': AccountTypePasivo,
	'3': AccountTypePatrimonio,
	'4': AccountTypeIngreso,
	'5': AccountTypeGasto,
	'6': AccountTypeCosto,
	'7': AccountTypeCosto,
	'8': AccountTypeOrdenDeudor,
	'9': AccountTypeOrdenAcreedor,
}

var naturalezaByType = map[AccountType]Naturaleza{
	AccountTypeActivo:        NaturalezaDebito,
	AccountTypeGasto:         NaturalezaDebito,
	AccountTypeCosto:         NaturalezaDebito,
	AccountTypeOrdenDeudor:   NaturalezaDebito,
	AccountTypePasivo:        NaturalezaCredito,
	AccountTypePatrimonio:    NaturalezaCredito,
	AccountTypeIngreso:       NaturalezaCredito,
	AccountTypeOrdenAcreedor: NaturalezaCredito,
}

// DetectAccountType derives the account class from a PUC code.
func DetectAccountType(code string) AccountType {
	if code == "" {
		return AccountTypeActivo
	}
	if t, ok := accountTypeByDigit[code[0]]; ok {
		return t
	}
	return AccountTypeActivo
}

// DetectNaturaleza derives the normal-increase side from the account class.
func DetectNaturaleza(tipo AccountType) Naturaleza {
	if n, ok := naturalezaByType[tipo]; ok {
		return n
	}
	return NaturalezaDebito
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "Active"
	TransactionStatusCancelled TransactionStatus = "Cancelled"
)

// AuditAction is the kind of change an audit log row records.
type AuditAction string

const (
	AuditActionCreate  AuditAction = "CREATE"
	AuditActionUpdate  AuditAction = "UPDATE"
	AuditActionDelete  AuditAction = "DELETE"
	AuditActionCancel  AuditAction = "CANCEL"
	AuditActionRestore AuditAction = "RESTORE"
)

// LicenseType is the access tier of a user license.
type LicenseType string

const (
	LicenseTypeTrial      LicenseType = "TRIAL"
	LicenseTypeBasic      LicenseType = "BASIC"
	LicenseTypePro        LicenseType = "PRO"
	LicenseTypeEnterprise LicenseType = "ENTERPRISE"
)
