package repository

import (
	"context"

	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
)

// SaleRepository persistencia atómica de ventas.
type SaleRepository interface {
	// CommitSale inserta cabecera, ítems, descuenta stock y registra los movimientos en un solo lote.
	// Si algún producto no tiene stock suficiente devuelve ErrInsufficientStock y nada se persiste.
	CommitSale(ctx context.Context, sale *entity.Sale, movements []entity.StockMovement) error
	GetByID(ctx context.Context, businessID, id string) (*entity.Sale, error)
}
