package repository

import (
	"context"

	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
)

// BuildDocumentFunc arma el documento con el número ya reservado. Se ejecuta dentro de la
// transacción de numeración; un error aborta la transacción y el número no se consume.
type BuildDocumentFunc func(cfg *entity.FiscalConfig, numero int64) (*entity.FiscalDocument, error)

// FiscalRepository persistencia de NFC-e y numeración por negocio.
type FiscalRepository interface {
	GetConfig(ctx context.Context, businessID string) (*entity.FiscalConfig, error)
	// CreateNumbered reserva el próximo número (incremento atómico) e inserta el documento
	// armado por build en la misma transacción. Venta con documento existente => ErrConflict.
	CreateNumbered(ctx context.Context, businessID string, build BuildDocumentFunc) (*entity.FiscalDocument, error)
	GetByID(ctx context.Context, businessID, id string) (*entity.FiscalDocument, error)
	GetBySaleID(ctx context.Context, businessID, saleID string) (*entity.FiscalDocument, error)
	// UpdateStatus persiste doc solo si el estado almacenado sigue siendo from; si no, ErrInvalidState.
	UpdateStatus(ctx context.Context, doc *entity.FiscalDocument, from string) error
}
