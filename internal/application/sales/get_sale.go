package sales

import (
	"context"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

// GetSaleUseCase lectura de una venta con sus ítems.
type GetSaleUseCase struct {
	sales repository.SaleRepository
}

func NewGetSaleUseCase(sales repository.SaleRepository) *GetSaleUseCase {
	return &GetSaleUseCase{sales: sales}
}

// GetSale devuelve ErrNotFound si la venta no existe en el negocio.
func (uc *GetSaleUseCase) GetSale(ctx context.Context, businessID, id string) (*dto.SaleResponse, error) {
	sale, err := uc.sales.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	return ToSaleResponse(sale), nil
}

// ToSaleResponse mapea la entidad a la respuesta HTTP.
func ToSaleResponse(s *entity.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:            s.ID,
		BusinessID:    s.BusinessID,
		UserID:        s.UserID,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		CreatedAt:     s.CreatedAt,
		Items:         make([]dto.SaleItemResponse, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return resp
}
