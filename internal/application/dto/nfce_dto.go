package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// GenerateNFCeRequest body para POST /api/nfce.
type GenerateNFCeRequest struct {
	SaleID string `json:"sale_id" validate:"required"`
}

// CancelNFCeRequest body para POST /api/nfce/:id/cancel.
type CancelNFCeRequest struct {
	Justificativa string `json:"justificativa" validate:"required"`
}

// NFCeResponse documento fiscal en respuestas (sin XML; ver /xml).
type NFCeResponse struct {
	ID              string             `json:"id"`
	SaleID          string             `json:"sale_id"`
	Numero          int64              `json:"numero"`
	Serie           int                `json:"serie"`
	AccessKey       string             `json:"access_key"`
	Status          string             `json:"status"`
	Environment     string             `json:"environment"`
	Total           decimal.Decimal    `json:"total"`
	ICMSTotal       decimal.Decimal    `json:"icms_total"`
	Protocol        string             `json:"protocol,omitempty"`
	CancelProtocol  string             `json:"cancel_protocol,omitempty"`
	RejectionCode   string             `json:"rejection_code,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	Observations    string             `json:"observations,omitempty"`
	IssuedAt        time.Time          `json:"issued_at"`
	AuthorizedAt    *time.Time         `json:"authorized_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	Items           []NFCeItemResponse `json:"items"`
}

// NFCeItemResponse línea fiscal.
type NFCeItemResponse struct {
	Numero      int             `json:"numero"`
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	NCM         string          `json:"ncm"`
	CFOP        string          `json:"cfop"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	ICMSValue   decimal.Decimal `json:"icms_value"`
}
