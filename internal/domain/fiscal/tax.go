package fiscal

import (
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxRules clasificación placeholder aplicada a todas las líneas (sin tabla tributaria real).
type TaxRules struct {
	ICMSRate decimal.Decimal // porcentaje
	NCM      string
	CFOP     string
	CST      string
}

// ICMS valor del impuesto de una línea: base * alíquota / 100, redondeado a 2 decimales.
func ICMS(base, ratePercent decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePercent).Div(hundred).Round(2)
}

// BuildItems deriva las líneas fiscales de la venta. La descripción del ítem es la copia
// histórica de la venta; el barcode se toma del producto si está disponible.
func BuildItems(items []entity.SaleItem, barcodes map[string]string, units map[string]string, rules TaxRules) ([]entity.FiscalItem, decimal.Decimal) {
	out := make([]entity.FiscalItem, 0, len(items))
	icmsTotal := decimal.Zero
	for i, it := range items {
		unit := units[it.ProductID]
		if unit == "" {
			unit = "UN"
		}
		value := ICMS(it.Total, rules.ICMSRate)
		icmsTotal = icmsTotal.Add(value)
		out = append(out, entity.FiscalItem{
			Numero:      i + 1,
			ProductID:   it.ProductID,
			Code:        it.ProductID,
			Barcode:     barcodes[it.ProductID],
			Description: it.ProductName,
			NCM:         rules.NCM,
			CFOP:        rules.CFOP,
			CST:         rules.CST,
			Unit:        unit,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
			ICMSRate:    rules.ICMSRate,
			ICMSBase:    it.Total,
			ICMSValue:   value,
		})
	}
	return out, icmsTotal
}
