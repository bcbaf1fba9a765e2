package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

// RegisterMovementUseCase registra entradas y saídas manuales con bloqueo de fila y Commit/Rollback.
type RegisterMovementUseCase struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	pub       events.Publisher
	log       zerolog.Logger
}

// NewRegisterMovementUseCase construye el caso de uso. pub puede ser nil.
func NewRegisterMovementUseCase(
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	pub events.Publisher,
	log zerolog.Logger,
) *RegisterMovementUseCase {
	if pub == nil {
		pub = events.Noop{}
	}
	return &RegisterMovementUseCase{products: products, movements: movements, pub: pub, log: log}
}

// RegisterMovement valida y aplica el movimiento. Una entrada con unit_cost recalcula el costo
// promedio ponderado; una saida sin stock devuelve ErrInsufficientStock sin cambios.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, businessID, userID string, in dto.RegisterMovementRequest) (*dto.MovementResponse, error) {
	switch {
	case in.ProductID == "":
		return nil, fmt.Errorf("%w: producto requerido", domain.ErrValidation)
	case in.Type != entity.MovementEntrada && in.Type != entity.MovementSaida:
		return nil, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrValidation, in.Type)
	case in.Quantity <= 0:
		return nil, fmt.Errorf("%w: cantidad debe ser mayor a cero", domain.ErrValidation)
	case in.UnitCost != nil && in.UnitCost.IsNegative():
		return nil, fmt.Errorf("%w: costo unitario negativo", domain.ErrValidation)
	case in.UnitCost != nil && in.Type == entity.MovementSaida:
		return nil, fmt.Errorf("%w: costo unitario solo aplica a entradas", domain.ErrValidation)
	}

	before, err := uc.products.GetByID(ctx, businessID, in.ProductID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "Ajuste manual"
	}
	mov := &entity.StockMovement{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		ProductID:  in.ProductID,
		Type:       in.Type,
		Quantity:   in.Quantity,
		Reason:     reason,
		UserID:     userID,
		CreatedAt:  time.Now(),
	}
	if in.UnitCost != nil {
		unit := *in.UnitCost
		total := unit.Mul(decimal.NewFromInt(int64(in.Quantity)))
		mov.UnitCost, mov.TotalCost = &unit, &total
	}

	after, err := uc.movements.Apply(context.WithoutCancel(ctx), mov)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		uc.log.Error().Err(err).Str("product_id", in.ProductID).Msg("aplicar movimiento de stock")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	sp := events.StockPayload{ProductID: after.ID, Name: after.Name, Stock: after.Stock, MinStock: after.MinStock, Reason: reason}
	events.Emit(ctx, uc.pub, uc.log, events.TypeStockUpdated, businessID, mov.ID, sp)
	if after.IsLowStock() && !before.IsLowStock() {
		events.Emit(ctx, uc.pub, uc.log, events.TypeStockLow, businessID, mov.ID, sp)
	}

	resp := toMovementResponse(mov, after)
	return &resp, nil
}
