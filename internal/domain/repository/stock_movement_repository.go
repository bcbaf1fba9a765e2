package repository

import (
	"context"

	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
)

// StockMovementRepository movimientos manuales y auditoría de stock.
type StockMovementRepository interface {
	// Apply bloquea el producto, actualiza su stock e inserta el movimiento en el mismo lote.
	// Una saida sin stock suficiente devuelve ErrInsufficientStock. Una entrada con UnitCost
	// recalcula el costo promedio ponderado con el stock bloqueado.
	Apply(ctx context.Context, mov *entity.StockMovement) (*entity.Product, error)
	ListByProduct(ctx context.Context, businessID, productID string, limit, offset int) ([]*entity.StockMovement, error)
}
