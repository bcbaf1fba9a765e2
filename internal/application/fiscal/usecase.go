// Package fiscal orquesta el ciclo de vida de la NFC-e: emisión numerada, transmisión a la
// SEFAZ con reintentos, cancelamento e impresión del DANFE.
package fiscal

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	domfiscal "github.com/jhoicas/pdv-nfce/internal/domain/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

// Options parámetros del motor fiscal.
type Options struct {
	Tax             domfiscal.TaxRules
	Environment     string        // ambiente por defecto si la configuración del negocio no define uno
	TransmitTimeout time.Duration // por intento
	MaxAttempts     int
	InitialBackoff  time.Duration
	// CodeGenerator genera el cNF de 8 dígitos; por defecto crypto/rand.
	CodeGenerator func() (string, error)
	Now           func() time.Time
}

func (o *Options) defaults() {
	if o.TransmitTimeout <= 0 {
		o.TransmitTimeout = 15 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.CodeGenerator == nil {
		o.CodeGenerator = RandomCode
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// NFCeUseCase casos de uso de la NFC-e.
type NFCeUseCase struct {
	docs        repository.FiscalRepository
	sales       repository.SaleRepository
	products    repository.ProductRepository
	builder     DocumentBuilder
	transmitter Transmitter
	pdf         PDFRenderer
	pub         events.Publisher
	log         zerolog.Logger
	opts        Options
}

// NewNFCeUseCase construye el caso de uso. pdf y pub pueden ser nil.
func NewNFCeUseCase(
	docs repository.FiscalRepository,
	sales repository.SaleRepository,
	products repository.ProductRepository,
	builder DocumentBuilder,
	transmitter Transmitter,
	pdf PDFRenderer,
	pub events.Publisher,
	log zerolog.Logger,
	opts Options,
) *NFCeUseCase {
	opts.defaults()
	if pub == nil {
		pub = events.Noop{}
	}
	return &NFCeUseCase{
		docs:        docs,
		sales:       sales,
		products:    products,
		builder:     builder,
		transmitter: transmitter,
		pdf:         pdf,
		pub:         pub,
		log:         log,
		opts:        opts,
	}
}

// Get devuelve el documento; ErrNotFound si no es del negocio.
func (uc *NFCeUseCase) Get(ctx context.Context, businessID, id string) (*dto.NFCeResponse, error) {
	doc, err := uc.docs.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	return ToNFCeResponse(doc), nil
}

// GetBySale devuelve la NFC-e emitida para la venta.
func (uc *NFCeUseCase) GetBySale(ctx context.Context, businessID, saleID string) (*dto.NFCeResponse, error) {
	doc, err := uc.docs.GetBySaleID(ctx, businessID, saleID)
	if err != nil {
		return nil, err
	}
	return ToNFCeResponse(doc), nil
}

// withRetry ejecuta op con timeout por intento y backoff exponencial. Solo se reintentan
// errores ErrExternalTransmission; agotado el presupuesto se devuelve ErrExternalTransmission.
func withRetry[T any](ctx context.Context, uc *NFCeUseCase, what string, op func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.opts.InitialBackoff

	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		actx, cancel := context.WithTimeout(ctx, uc.opts.TransmitTimeout)
		defer cancel()
		r, err := op(actx)
		if err != nil && !errors.Is(err, domain.ErrExternalTransmission) {
			return r, backoff.Permanent(err)
		}
		return r, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(uc.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			uc.log.Warn().Err(err).Str("op", what).Int("attempt", attempt).Dur("next", next).Msg("reintentando transmisión")
		}),
	)
	if err != nil && !errors.Is(err, domain.ErrExternalTransmission) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = fmt.Errorf("%w: %v", domain.ErrExternalTransmission, err)
	}
	return res, err
}

// RandomCode cNF aleatorio de 8 dígitos.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generar cNF: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

func (uc *NFCeUseCase) emit(ctx context.Context, eventType string, doc *entity.FiscalDocument) {
	events.Emit(ctx, uc.pub, uc.log, eventType, doc.BusinessID, doc.ID, events.NFCePayload{
		NFCeID:    doc.ID,
		SaleID:    doc.SaleID,
		Numero:    doc.Numero,
		Serie:     doc.Serie,
		AccessKey: doc.AccessKey,
		Status:    doc.Status,
		Protocol:  doc.Protocol,
		Reason:    doc.RejectionReason,
	})
}

// ToNFCeResponse mapea la entidad a la respuesta HTTP.
func ToNFCeResponse(d *entity.FiscalDocument) *dto.NFCeResponse {
	resp := &dto.NFCeResponse{
		ID:              d.ID,
		SaleID:          d.SaleID,
		Numero:          d.Numero,
		Serie:           d.Serie,
		AccessKey:       d.AccessKey,
		Status:          d.Status,
		Environment:     d.Environment,
		Total:           d.Total,
		ICMSTotal:       d.ICMSTotal,
		Protocol:        d.Protocol,
		CancelProtocol:  d.CancelProtocol,
		RejectionCode:   d.RejectionCode,
		RejectionReason: d.RejectionReason,
		Observations:    d.Observations,
		IssuedAt:        d.IssuedAt,
		AuthorizedAt:    d.AuthorizedAt,
		CancelledAt:     d.CancelledAt,
		Items:           make([]dto.NFCeItemResponse, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		resp.Items = append(resp.Items, dto.NFCeItemResponse{
			Numero:      it.Numero,
			ProductID:   it.ProductID,
			Description: it.Description,
			NCM:         it.NCM,
			CFOP:        it.CFOP,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
			ICMSValue:   it.ICMSValue,
		})
	}
	return resp
}
