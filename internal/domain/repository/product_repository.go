package repository

import (
	"context"

	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
)

// ProductRepository lectura del catálogo. Todas las consultas filtran por negocio.
type ProductRepository interface {
	// GetByID devuelve ErrNotFound si no existe o pertenece a otro negocio.
	GetByID(ctx context.Context, businessID, id string) (*entity.Product, error)
	// GetByIDs devuelve los productos encontrados indexados por ID (los ausentes se omiten).
	GetByIDs(ctx context.Context, businessID string, ids []string) (map[string]*entity.Product, error)
	// ListLowStock productos con stock <= min_stock y min_stock > 0, de menor holgura a mayor.
	ListLowStock(ctx context.Context, businessID string) ([]*entity.Product, error)
}
