package fiscal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	domfiscal "github.com/jhoicas/pdv-nfce/internal/domain/fiscal"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// Generate emite la NFC-e de una venta en estado pendente.
// La numeración y la inserción ocurren en la misma transacción: el número queda consumido
// al confirmar, aunque el documento sea rechazado después.
func (uc *NFCeUseCase) Generate(ctx context.Context, businessID, saleID string) (*dto.NFCeResponse, error) {
	if saleID == "" {
		return nil, fmt.Errorf("%w: sale_id requerido", domain.ErrValidation)
	}
	sale, err := uc.sales.GetByID(ctx, businessID, saleID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.docs.GetBySaleID(ctx, businessID, saleID); err == nil {
		return nil, fmt.Errorf("%w: la venta ya tiene NFC-e", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ids := make([]string, 0, len(sale.Items))
	for _, it := range sale.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := uc.products.GetByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, err
	}
	barcodes := make(map[string]string, len(products))
	units := make(map[string]string, len(products))
	for id, p := range products {
		barcodes[id], units[id] = p.Barcode, p.Unit
	}
	items, icmsTotal := domfiscal.BuildItems(sale.Items, barcodes, units, uc.opts.Tax)

	cnf, err := uc.opts.CodeGenerator()
	if err != nil {
		return nil, err
	}
	now := uc.opts.Now()

	doc, err := uc.docs.CreateNumbered(context.WithoutCancel(ctx), businessID, func(cfg *entity.FiscalConfig, numero int64) (*entity.FiscalDocument, error) {
		cuf, err := nfce.UFCode(cfg.UF)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		key, err := nfce.BuildAccessKey(nfce.KeyParams{
			CUF:            cuf,
			EmissionDate:   now,
			CNPJ:           cfg.CNPJ,
			Serie:          cfg.Serie,
			Numero:         numero,
			TpEmis:         nfce.TpEmisNormal,
			CodigoNumerico: cnf,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		env := cfg.Environment
		if env == "" {
			env = uc.opts.Environment
		}
		doc := &entity.FiscalDocument{
			ID:             uuid.NewString(),
			BusinessID:     businessID,
			SaleID:         sale.ID,
			Numero:         numero,
			Serie:          cfg.Serie,
			AccessKey:      key,
			CodigoNumerico: cnf,
			Status:         entity.NFCeStatusPendente,
			Environment:    env,
			PaymentMethod:  sale.PaymentMethod,
			Total:          sale.Total,
			ICMSTotal:      icmsTotal,
			Items:          items,
			IssuedAt:       now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		xml, err := uc.builder.BuildNFCe(doc, cfg)
		if err != nil {
			return nil, fmt.Errorf("generar XML: %w", err)
		}
		doc.XMLGenerated = xml
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("business_id", businessID).
		Str("sale_id", saleID).
		Int64("numero", doc.Numero).
		Str("chave", doc.AccessKey).
		Msg("NFC-e generada")
	uc.emit(ctx, events.TypeNFCeGenerated, doc)
	return ToNFCeResponse(doc), nil
}
