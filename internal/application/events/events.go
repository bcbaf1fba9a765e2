// Package events define el sobre de los eventos del PDV y el puerto de publicación.
// Los eventos se publican después del commit y en modo best-effort: una falla de
// publicación se registra pero no revierte la operación ya confirmada.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	TypeSaleCompleted  = "SaleCompleted"
	TypeStockUpdated   = "StockUpdated"
	TypeStockLow       = "StockLow"
	TypeNFCeGenerated  = "NFCeGenerated"
	TypeNFCeAuthorized = "NFCeAuthorized"
	TypeNFCeRejected   = "NFCeRejected"
	TypeNFCeCancelled  = "NFCeCancelled"
)

const (
	TopicSaleCompleted  = "pdv.sale.completed"
	TopicStockUpdated   = "pdv.stock.updated"
	TopicStockLow       = "pdv.stock.low"
	TopicNFCeGenerated  = "pdv.nfce.generated"
	TopicNFCeAuthorized = "pdv.nfce.authorized"
	TopicNFCeRejected   = "pdv.nfce.rejected"
	TopicNFCeCancelled  = "pdv.nfce.cancelled"
)

var topicByType = map[string]string{
	TypeSaleCompleted:  TopicSaleCompleted,
	TypeStockUpdated:   TopicStockUpdated,
	TypeStockLow:       TopicStockLow,
	TypeNFCeGenerated:  TopicNFCeGenerated,
	TypeNFCeAuthorized: TopicNFCeAuthorized,
	TypeNFCeRejected:   TopicNFCeRejected,
	TypeNFCeCancelled:  TopicNFCeCancelled,
}

// Producer nombre con el que se firman los eventos.
const Producer = "pdv-api"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	BusinessID    string          `json:"business_id"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale_id o nfce id
	Payload       json.RawMessage `json:"payload"`
}

// Topic devuelve el tópico del tipo de evento.
func (e Envelope) Topic() string { return topicByType[e.EventType] }

// PartitionKey = business_id: los eventos de un negocio mantienen el orden.
func (e Envelope) PartitionKey() []byte { return []byte(e.BusinessID) }

// New arma un sobre con ID y timestamp propios.
func New(eventType, businessID, correlationID string, payload any) (Envelope, error) {
	if _, ok := topicByType[eventType]; !ok {
		return Envelope{}, fmt.Errorf("events: tipo desconocido %q", eventType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      Producer,
		BusinessID:    businessID,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Publisher destino de eventos (Kafka, websocket...).
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Noop descarta los eventos.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

// Multi reparte cada evento a todos los publicadores y junta los errores.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit arma y publica el evento; las fallas solo se registran.
func Emit(ctx context.Context, pub Publisher, log zerolog.Logger, eventType, businessID, correlationID string, payload any) {
	env, err := New(eventType, businessID, correlationID, payload)
	if err == nil {
		err = pub.Publish(ctx, env)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Str("business_id", businessID).Msg("publicar evento")
	}
}

// ---- Payload por evento ----

type SaleItemPayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SaleCompletedPayload struct {
	SaleID        string            `json:"sale_id"`
	UserID        string            `json:"user_id"`
	Total         decimal.Decimal   `json:"total"`
	PaymentMethod string            `json:"payment_method"`
	Items         []SaleItemPayload `json:"items"`
}

type StockPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
	Reason    string `json:"reason,omitempty"`
}

type NFCePayload struct {
	NFCeID    string `json:"nfce_id"`
	SaleID    string `json:"sale_id"`
	Numero    int64  `json:"numero"`
	Serie     int    `json:"serie"`
	AccessKey string `json:"access_key"`
	Status    string `json:"status"`
	Protocol  string `json:"protocol,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
