package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del PDV de un negocio.
// Stock es entero y nunca negativo; solo cambia dentro de una venta confirmada o un movimiento explícito.
// Cost es promedio ponderado recalculado en cada entrada con costo.
type Product struct {
	ID         string
	BusinessID string
	Name       string
	Barcode    string // único por negocio
	Price      decimal.Decimal
	Cost       decimal.Decimal
	Stock      int
	MinStock   int
	Unit       string // UN, KG, LT...
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsLowStock indica stock en o por debajo del mínimo (solo si hay mínimo configurado).
func (p *Product) IsLowStock() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}
