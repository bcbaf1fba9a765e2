package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// commitTimeout límite del lote de la venta; el lote no se cancela con la petición HTTP.
const commitTimeout = 15 * time.Second

// idemTries intentos para registrar la venta bajo su Idempotency-Key. Si se agotan, la marca
// "en curso" del almacén expira sola y el cliente puede reintentar.
const idemTries = 3

// CompleteSaleUseCase confirma una venta: cabecera, ítems, descuentos de stock y movimientos
// en un único lote atómico.
type CompleteSaleUseCase struct {
	sales    repository.SaleRepository
	products repository.ProductRepository
	idem     IdempotencyStore // opcional
	pub      events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

// NewCompleteSaleUseCase construye el caso de uso. idem y pub pueden ser nil.
func NewCompleteSaleUseCase(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	idem IdempotencyStore,
	pub events.Publisher,
	log zerolog.Logger,
) *CompleteSaleUseCase {
	if pub == nil {
		pub = events.Noop{}
	}
	return &CompleteSaleUseCase{
		sales:    sales,
		products: products,
		idem:     idem,
		pub:      pub,
		log:      log,
		now:      time.Now,
	}
}

// CompleteSale valida el carrito, calcula totales y confirma la venta.
// Errores: ErrValidation (antes de cualquier escritura), ErrInsufficientStock (nada se persiste),
// ErrConflict (misma Idempotency-Key en curso), ErrTransactionFailed (cualquier otra falla del lote).
func (uc *CompleteSaleUseCase) CompleteSale(ctx context.Context, businessID, userID string, in dto.CompleteSaleRequest, idemKey string) (*dto.SaleResponse, error) {
	if businessID == "" {
		return nil, fmt.Errorf("%w: negocio requerido", domain.ErrValidation)
	}
	if err := validateCart(in); err != nil {
		return nil, err
	}

	if idemKey != "" && uc.idem != nil {
		saleID, reserved, err := uc.idem.Reserve(ctx, businessID, idemKey)
		switch {
		case err != nil:
			// sin idempotencia disponible la venta sigue; el cliente reintenta bajo su riesgo
			uc.log.Warn().Err(err).Str("business_id", businessID).Msg("idempotencia no disponible")
			idemKey = ""
		case !reserved && saleID != "":
			sale, err := uc.sales.GetByID(ctx, businessID, saleID)
			if err != nil {
				return nil, fmt.Errorf("get replayed sale: %w", err)
			}
			resp := ToSaleResponse(sale)
			resp.Replayed = true
			return resp, nil
		case !reserved:
			return nil, fmt.Errorf("%w: venta con la misma Idempotency-Key en curso", domain.ErrConflict)
		}
	} else {
		idemKey = ""
	}

	resp, err := uc.commit(ctx, businessID, userID, in)
	if err != nil {
		if idemKey != "" {
			if rerr := uc.idem.Release(ctx, businessID, idemKey); rerr != nil {
				uc.log.Warn().Err(rerr).Msg("liberar idempotency key")
			}
		}
		return nil, err
	}
	if idemKey != "" {
		uc.recordKey(ctx, businessID, idemKey, resp.ID)
	}
	return resp, nil
}

// recordKey la venta ya está confirmada: un fallo aquí se registra pero no se devuelve.
func (uc *CompleteSaleUseCase) recordKey(ctx context.Context, businessID, key, saleID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	_, err := backoff.Retry(rctx, func() (struct{}, error) {
		return struct{}{}, uc.idem.Complete(rctx, businessID, key, saleID)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(100*time.Millisecond)),
		backoff.WithMaxTries(idemTries),
	)
	if err != nil {
		uc.log.Error().Err(err).
			Str("business_id", businessID).
			Str("sale_id", saleID).
			Msg("registrar idempotency key; la clave queda en curso hasta expirar")
	}
}

func (uc *CompleteSaleUseCase) commit(ctx context.Context, businessID, userID string, in dto.CompleteSaleRequest) (*dto.SaleResponse, error) {
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	before, err := uc.products.GetByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	for _, id := range ids {
		if _, ok := before[id]; !ok {
			return nil, fmt.Errorf("%w: producto %s no existe", domain.ErrValidation, id)
		}
	}

	now := uc.now()
	sale := &entity.Sale{
		ID:            uuid.NewString(),
		BusinessID:    businessID,
		UserID:        userID,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
		Total:         decimal.Zero,
	}
	for _, it := range in.Items {
		name := it.ProductName
		if name == "" {
			name = before[it.ProductID].Name
		}
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		sale.Items = append(sale.Items, entity.SaleItem{
			ID:          uuid.NewString(),
			SaleID:      sale.ID,
			ProductID:   it.ProductID,
			ProductName: name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       line,
		})
		sale.Total = sale.Total.Add(line)
	}
	if in.Total != nil && !in.Total.Equal(sale.Total) {
		return nil, fmt.Errorf("%w: total informado %s difiere del calculado %s", domain.ErrValidation, in.Total, sale.Total)
	}

	movements := SaleMovements(sale)

	batchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := uc.sales.CommitSale(batchCtx, sale, movements); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return nil, err
		}
		uc.log.Error().Err(err).
			Str("business_id", businessID).
			Str("sale_id", sale.ID).
			Int("items", len(sale.Items)).
			Msg("commit de venta falló")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	uc.log.Info().
		Str("business_id", businessID).
		Str("sale_id", sale.ID).
		Str("total", sale.Total.StringFixed(2)).
		Msg("venta confirmada")

	uc.publish(ctx, sale, before)
	return ToSaleResponse(sale), nil
}

// SaleMovements una saida por ítem, ordenadas por producto para que ventas concurrentes
// bloqueen las filas en el mismo orden.
func SaleMovements(sale *entity.Sale) []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(sale.Items))
	for _, it := range sale.Items {
		out = append(out, entity.StockMovement{
			ID:         uuid.NewString(),
			BusinessID: sale.BusinessID,
			ProductID:  it.ProductID,
			Type:       entity.MovementSaida,
			Quantity:   it.Quantity,
			Reason:     entity.ReasonSale,
			SaleID:     sale.ID,
			UserID:     sale.UserID,
			CreatedAt:  sale.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func validateCart(in dto.CompleteSaleRequest) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: la venta no tiene ítems", domain.ErrValidation)
	}
	if !nfce.IsPaymentMethod(in.PaymentMethod) {
		return fmt.Errorf("%w: método de pago %q", domain.ErrValidation, in.PaymentMethod)
	}
	if in.Total != nil && !isCents(*in.Total) {
		return fmt.Errorf("%w: total %s con más de %d decimales", domain.ErrValidation, in.Total, moneyPlaces)
	}
	for i, it := range in.Items {
		switch {
		case it.ProductID == "":
			return fmt.Errorf("%w: ítem %d sin producto", domain.ErrValidation, i)
		case it.Quantity <= 0:
			return fmt.Errorf("%w: ítem %d con cantidad %d", domain.ErrValidation, i, it.Quantity)
		case it.UnitPrice.IsNegative():
			return fmt.Errorf("%w: ítem %d con precio negativo", domain.ErrValidation, i)
		case !isCents(it.UnitPrice):
			return fmt.Errorf("%w: ítem %d precio %s con más de %d decimales", domain.ErrValidation, i, it.UnitPrice, moneyPlaces)
		}
		if it.Total != nil {
			if !isCents(*it.Total) {
				return fmt.Errorf("%w: ítem %d total %s con más de %d decimales", domain.ErrValidation, i, it.Total, moneyPlaces)
			}
			want := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
			if !it.Total.Equal(want) {
				return fmt.Errorf("%w: ítem %d total %s, esperado %s", domain.ErrValidation, i, it.Total, want)
			}
		}
	}
	return nil
}

// moneyPlaces escala de las columnas NUMERIC(14,2): con precios en centavos el total de la
// línea es exacto y lo persistido coincide con la respuesta.
const moneyPlaces = 2

// isCents "1.50" y "1.500" valen; "0.333" no.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(moneyPlaces))
}

func (uc *CompleteSaleUseCase) publish(ctx context.Context, sale *entity.Sale, before map[string]*entity.Product) {
	payload := events.SaleCompletedPayload{
		SaleID:        sale.ID,
		UserID:        sale.UserID,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
	}
	for _, it := range sale.Items {
		payload.Items = append(payload.Items, events.SaleItemPayload{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	events.Emit(ctx, uc.pub, uc.log, events.TypeSaleCompleted, sale.BusinessID, sale.ID, payload)

	ids := make([]string, 0, len(before))
	for id := range before {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	after, err := uc.products.GetByIDs(ctx, sale.BusinessID, ids)
	if err != nil {
		uc.log.Warn().Err(err).Msg("leer stock posterior a la venta")
		return
	}
	for _, id := range ids {
		p, ok := after[id]
		if !ok {
			continue
		}
		sp := events.StockPayload{ProductID: p.ID, Name: p.Name, Stock: p.Stock, MinStock: p.MinStock, Reason: entity.ReasonSale}
		events.Emit(ctx, uc.pub, uc.log, events.TypeStockUpdated, sale.BusinessID, sale.ID, sp)
		if p.IsLowStock() && !before[id].IsLowStock() {
			events.Emit(ctx, uc.pub, uc.log, events.TypeStockLow, sale.BusinessID, sale.ID, sp)
		}
	}
}
