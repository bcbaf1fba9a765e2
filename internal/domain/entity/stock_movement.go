package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementEntrada = "entrada"
	MovementSaida   = "saida"
)

// Motivo registrado en las salidas generadas por una venta.
const ReasonSale = "Venda"

// StockMovement registro append-only de un cambio de stock.
type StockMovement struct {
	ID         string
	BusinessID string
	ProductID  string
	Type       string // entrada, saida
	Quantity   int    // siempre > 0
	Reason     string
	UnitCost   *decimal.Decimal
	TotalCost  *decimal.Decimal
	SaleID     string // vacío si el movimiento es manual
	UserID     string
	CreatedAt  time.Time
}
