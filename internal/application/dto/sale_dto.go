package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompleteSaleRequest body para POST /api/sales.
// Total es opcional: si viene, debe coincidir con el calculado por el servidor.
type CompleteSaleRequest struct {
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=dinheiro credito debito pix outros"`
	Total         *decimal.Decimal  `json:"total,omitempty"`
}

// SaleItemRequest línea del carrito.
type SaleItemRequest struct {
	ProductID   string           `json:"product_id" validate:"required"`
	ProductName string           `json:"product_name"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// SaleResponse venta confirmada con sus ítems.
type SaleResponse struct {
	ID            string             `json:"id"`
	BusinessID    string             `json:"business_id"`
	UserID        string             `json:"user_id"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	CreatedAt     time.Time          `json:"created_at"`
	Items         []SaleItemResponse `json:"items"`
	Replayed      bool               `json:"replayed,omitempty"` // respuesta de una clave de idempotencia ya usada
}

// SaleItemResponse línea de venta en la respuesta.
type SaleItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}
