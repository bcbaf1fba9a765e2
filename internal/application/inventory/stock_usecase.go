package inventory

import (
	"context"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

// StockUseCase consultas de stock (lectura, sin transacción).
type StockUseCase struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewStockUseCase(products repository.ProductRepository, movements repository.StockMovementRepository) *StockUseCase {
	return &StockUseCase{products: products, movements: movements}
}

// GetStock devuelve el stock actual; ErrNotFound si el producto no es del negocio.
func (uc *StockUseCase) GetStock(ctx context.Context, businessID, productID string) (*dto.StockResponse, error) {
	p, err := uc.products.GetByID(ctx, businessID, productID)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ProductID: p.ID, Stock: p.Stock}, nil
}

// LowStock productos con stock <= mínimo (mínimo > 0), primero los de menor holgura.
func (uc *StockUseCase) LowStock(ctx context.Context, businessID string) ([]dto.LowStockItem, error) {
	list, err := uc.products.ListLowStock(ctx, businessID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockItem, 0, len(list))
	for _, p := range list {
		out = append(out, dto.LowStockItem{
			ProductID: p.ID,
			Name:      p.Name,
			Barcode:   p.Barcode,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
			Missing:   p.MinStock - p.Stock,
		})
	}
	return out, nil
}

// ListMovements auditoría de movimientos de un producto, más recientes primero.
func (uc *StockUseCase) ListMovements(ctx context.Context, businessID, productID string, page dto.PageRequest) ([]dto.MovementResponse, error) {
	if _, err := uc.products.GetByID(ctx, businessID, productID); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.movements.ListByProduct(ctx, businessID, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementResponse(m, nil))
	}
	return out, nil
}

func toMovementResponse(m *entity.StockMovement, after *entity.Product) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:        m.ID,
		ProductID: m.ProductID,
		Type:      m.Type,
		Quantity:  m.Quantity,
		Reason:    m.Reason,
		UnitCost:  m.UnitCost,
		TotalCost: m.TotalCost,
		SaleID:    m.SaleID,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
	if after != nil {
		stock := after.Stock
		resp.StockAfter = &stock
	}
	return resp
}
