package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago aceptados por el PDV.
const (
	PaymentDinheiro = "dinheiro"
	PaymentCredito  = "credito"
	PaymentDebito   = "debito"
	PaymentPix      = "pix"
	PaymentOutros   = "outros"
)

// Sale cabecera de una venta. Inmutable una vez insertada.
// Total == suma de Items[i].Total.
type Sale struct {
	ID            string
	BusinessID    string
	UserID        string
	Total         decimal.Decimal
	PaymentMethod string
	CreatedAt     time.Time
	Items         []SaleItem
}

// SaleItem línea de venta. ProductName es una copia histórica del nombre al momento de la venta
// y no se actualiza si el producto cambia.
type SaleItem struct {
	ID          string
	SaleID      string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal // Quantity * UnitPrice
}
