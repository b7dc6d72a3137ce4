package models

import (
	"context"

	"github.com/peppinicontable/contable_backend/utils"
	"gorm.io/gorm"
)

type defaultAccount struct {
	Code string
	Name string
}

// defaultAccounts is the starter chart for a new company: the PUC groups a
// Colombian small business posts against day to day. Tipo, naturaleza and
// level are derived on save.
var defaultAccounts = []defaultAccount{
	{"1105", "Caja"},
	{"1110", "Bancos"},
	{"1305", "Clientes"},
	{"1435", "Mercancías no fabricadas por la empresa"},
	{"1524", "Equipo de oficina"},
	{"2205", "Proveedores nacionales"},
	{"2335", "Costos y gastos por pagar"},
	{"2365", "Retención en la fuente"},
	{"2408", "Impuesto sobre las ventas por pagar"},
	{"3115", "Aportes sociales"},
	{"3605", "Utilidad del ejercicio"},
	{"4135", "Comercio al por mayor y al por menor"},
	{"4175", "Devoluciones en ventas"},
	{"4210", "Ingresos financieros"},
	{"5105", "Gastos de personal"},
	{"5110", "Honorarios"},
	{"5115", "Impuestos"},
	{"5120", "Arrendamientos"},
	{"5125", "Contribuciones y afiliaciones"},
	{"5130", "Seguros"},
	{"5135", "Servicios"},
	{"5140", "Gastos legales"},
	{"5145", "Mantenimiento y reparaciones"},
	{"5155", "Gastos de viaje"},
	{"5160", "Depreciaciones"},
	{"5195", "Gastos diversos"},
	{"5905", "Gastos recuperados"},
	{"6135", "Costo de ventas"},
}

// CreateDefaultAccounts seeds the starter chart for a freshly created
// company.
func CreateDefaultAccounts(tx *gorm.DB, ctx context.Context, companyId string) ([]Account, error) {

	accounts := make([]Account, 0, len(defaultAccounts))
	for _, d := range defaultAccounts {
		accounts = append(accounts, Account{
			CompanyId: companyId,
			Code:      d.Code,
			Name:      d.Name,
			IsGroup:   utils.NewFalse(),
			IsActive:  utils.NewTrue(),
		})
	}

	if err := tx.WithContext(ctx).Create(&accounts).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return accounts, nil
}
