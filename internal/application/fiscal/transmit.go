package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	domfiscal "github.com/jhoicas/pdv-nfce/internal/domain/fiscal"
)

// Transmit envía un documento pendente a la SEFAZ.
// Autorizado => autorizada; rechazo de la autoridad => rejeitada. Si la autoridad no responde
// dentro del presupuesto de reintentos el documento sigue pendente y se devuelve ErrExternalTransmission.
func (uc *NFCeUseCase) Transmit(ctx context.Context, businessID, id string) (*dto.NFCeResponse, error) {
	doc, err := uc.docs.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := domfiscal.CheckTransmit(doc.Status); err != nil {
		return nil, err
	}
	cfg, err := uc.docs.GetConfig(ctx, businessID)
	if err != nil {
		return nil, err
	}

	res, err := withRetry(ctx, uc, "autorizacao", func(ctx context.Context) (*AuthorizationResult, error) {
		return uc.transmitter.Authorize(ctx, doc, cfg)
	})
	if err != nil {
		if errors.Is(err, domain.ErrExternalTransmission) {
			uc.log.Warn().Err(err).Str("nfce_id", doc.ID).Msg("SEFAZ sin respuesta; documento sigue pendente")
		}
		return nil, err
	}

	now := uc.opts.Now()
	if res.Authorized {
		doc.Status = entity.NFCeStatusAutorizada
		doc.Protocol = res.Protocol
		at := res.ReceivedAt
		if at.IsZero() {
			at = now
		}
		doc.AuthorizedAt = &at
		proc, err := uc.builder.BuildProc(doc, res)
		if err != nil {
			return nil, fmt.Errorf("generar nfeProc: %w", err)
		}
		doc.XMLAuthorized = proc
	} else {
		doc.Status = entity.NFCeStatusRejeitada
		doc.RejectionCode = res.CStat
		doc.RejectionReason = res.Motivo
	}
	doc.UpdatedAt = now

	if err := uc.docs.UpdateStatus(context.WithoutCancel(ctx), doc, entity.NFCeStatusPendente); err != nil {
		return nil, err
	}

	if res.Authorized {
		uc.log.Info().Str("nfce_id", doc.ID).Str("protocolo", doc.Protocol).Msg("NFC-e autorizada")
		uc.emit(ctx, events.TypeNFCeAuthorized, doc)
	} else {
		uc.log.Warn().Str("nfce_id", doc.ID).Str("cStat", res.CStat).Str("motivo", res.Motivo).Msg("NFC-e rechazada")
		uc.emit(ctx, events.TypeNFCeRejected, doc)
	}
	return ToNFCeResponse(doc), nil
}

// Cancel registra el evento de cancelamento de una NFC-e autorizada.
// La justificativa (recortada) debe tener al menos 15 caracteres.
func (uc *NFCeUseCase) Cancel(ctx context.Context, businessID, id, justificativa string) (*dto.NFCeResponse, error) {
	doc, err := uc.docs.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	just, err := domfiscal.CheckCancel(doc.Status, justificativa)
	if err != nil {
		return nil, err
	}
	cfg, err := uc.docs.GetConfig(ctx, businessID)
	if err != nil {
		return nil, err
	}

	res, err := withRetry(ctx, uc, "cancelamento", func(ctx context.Context) (*CancelResult, error) {
		return uc.transmitter.Cancel(ctx, doc, cfg, just)
	})
	if err != nil {
		return nil, err
	}
	if !res.Accepted {
		return nil, fmt.Errorf("%w: evento de cancelamento rechazado [%s] %s", domain.ErrConflict, res.CStat, res.Motivo)
	}

	now := uc.opts.Now()
	doc.Status = entity.NFCeStatusCancelada
	doc.CancelProtocol = res.Protocol
	doc.CancelledAt = &now
	doc.Observations = appendObservation(doc.Observations, "Cancelamento: "+just)
	doc.UpdatedAt = now

	if err := uc.docs.UpdateStatus(context.WithoutCancel(ctx), doc, entity.NFCeStatusAutorizada); err != nil {
		return nil, err
	}

	uc.log.Info().Str("nfce_id", doc.ID).Str("protocolo", doc.CancelProtocol).Msg("NFC-e cancelada")
	uc.emit(ctx, events.TypeNFCeCancelled, doc)
	return ToNFCeResponse(doc), nil
}

func appendObservation(obs, line string) string {
	obs = strings.TrimSpace(obs)
	if obs == "" {
		return line
	}
	return obs + "\n" + line
}
