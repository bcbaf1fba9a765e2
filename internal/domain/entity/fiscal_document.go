package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la NFC-e.
const (
	NFCeStatusPendente   = "pendente"
	NFCeStatusAutorizada = "autorizada"
	NFCeStatusRejeitada  = "rejeitada"
	NFCeStatusCancelada  = "cancelada"
)

// FiscalDocument NFC-e (modelo 65) emitida para una venta. Una venta tiene a lo sumo un documento.
type FiscalDocument struct {
	ID              string
	BusinessID      string
	SaleID          string
	Numero          int64
	Serie           int
	AccessKey       string // 44 dígitos
	CodigoNumerico  string // cNF, 8 dígitos
	Status          string
	Environment     string // homologacao, producao
	PaymentMethod   string
	Total           decimal.Decimal
	ICMSTotal       decimal.Decimal
	Protocol        string // nProt de autorización
	CancelProtocol  string // nProt del evento de cancelamento
	RejectionCode   string // cStat
	RejectionReason string // xMotivo
	Observations    string
	XMLGenerated    string
	XMLAuthorized   string // nfeProc
	Items           []FiscalItem
	IssuedAt        time.Time
	AuthorizedAt    *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FiscalItem línea fiscal derivada de un SaleItem con clasificación tributaria.
type FiscalItem struct {
	Numero      int // nItem, desde 1
	ProductID   string
	Code        string // cProd
	Barcode     string // cEAN, "SEM GTIN" si vacío
	Description string
	NCM         string
	CFOP        string
	CST         string
	Unit        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	ICMSRate    decimal.Decimal // porcentaje, ej. 18
	ICMSBase    decimal.Decimal
	ICMSValue   decimal.Decimal
}
