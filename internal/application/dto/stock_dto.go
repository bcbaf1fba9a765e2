package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockResponse stock actual de un producto.
type StockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// LowStockItem producto en o por debajo del mínimo.
type LowStockItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Barcode   string `json:"barcode,omitempty"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
	Missing   int    `json:"missing"` // min_stock - stock
}

// RegisterMovementRequest body para POST /api/stock/movements.
type RegisterMovementRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Type      string           `json:"type" validate:"required,oneof=entrada saida"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	Reason    string           `json:"reason" validate:"max=255"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

// MovementResponse movimiento registrado.
type MovementResponse struct {
	ID         string           `json:"id"`
	ProductID  string           `json:"product_id"`
	Type       string           `json:"type"`
	Quantity   int              `json:"quantity"`
	Reason     string           `json:"reason"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost  *decimal.Decimal `json:"total_cost,omitempty"`
	SaleID     string           `json:"sale_id,omitempty"`
	UserID     string           `json:"user_id,omitempty"`
	StockAfter *int             `json:"stock_after,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
