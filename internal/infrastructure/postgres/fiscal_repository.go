package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

var _ repository.FiscalRepository = (*FiscalRepo)(nil)

const fiscalConfigColumns = `business_id, cnpj, razao_social, nome_fantasia, ie, crt, logradouro, numero_end,
	bairro, cod_municipio, municipio, uf, cep, serie, proximo_numero, environment, csc_id, csc, updated_at`

const fiscalDocumentColumns = `id, business_id, sale_id, numero, serie, access_key, codigo_numerico, status,
	environment, payment_method, total, icms_total, protocol, cancel_protocol, rejection_code, rejection_reason,
	observations, xml_generated, xml_authorized, items, issued_at, authorized_at, cancelled_at, created_at, updated_at`

// FiscalRepo configuración del emisor, numeración y documentos NFC-e.
type FiscalRepo struct {
	ledger *Ledger
}

func NewFiscalRepository(ledger *Ledger) *FiscalRepo {
	return &FiscalRepo{ledger: ledger}
}

func scanFiscalConfig(row pgx.Row) (*entity.FiscalConfig, error) {
	var c entity.FiscalConfig
	err := row.Scan(&c.BusinessID, &c.CNPJ, &c.RazaoSocial, &c.NomeFantasia, &c.IE, &c.CRT, &c.Logradouro,
		&c.NumeroEnd, &c.Bairro, &c.CodMunicipio, &c.Municipio, &c.UF, &c.CEP, &c.Serie, &c.NextNumber,
		&c.Environment, &c.CSCID, &c.CSC, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanFiscalDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var d entity.FiscalDocument
	var protocol, cancelProtocol, rejCode, rejReason, xmlAuth *string
	var items []byte
	err := row.Scan(&d.ID, &d.BusinessID, &d.SaleID, &d.Numero, &d.Serie, &d.AccessKey, &d.CodigoNumerico,
		&d.Status, &d.Environment, &d.PaymentMethod, &d.Total, &d.ICMSTotal, &protocol, &cancelProtocol,
		&rejCode, &rejReason, &d.Observations, &d.XMLGenerated, &xmlAuth, &items, &d.IssuedAt,
		&d.AuthorizedAt, &d.CancelledAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Protocol, d.CancelProtocol = deref(protocol), deref(cancelProtocol)
	d.RejectionCode, d.RejectionReason = deref(rejCode), deref(rejReason)
	d.XMLAuthorized = deref(xmlAuth)
	if err := json.Unmarshal(items, &d.Items); err != nil {
		return nil, fmt.Errorf("decode fiscal items: %w", err)
	}
	return &d, nil
}

// GetConfig configuración fiscal del negocio.
func (r *FiscalRepo) GetConfig(ctx context.Context, businessID string) (*entity.FiscalConfig, error) {
	c, err := scanFiscalConfig(r.ledger.Pool().QueryRow(ctx,
		`SELECT `+fiscalConfigColumns+` FROM fiscal_configs WHERE business_id = $1`, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get fiscal config: %w", err)
	}
	return c, nil
}

// CreateNumbered el UPDATE ... RETURNING bloquea la fila de configuración hasta el commit,
// así dos emisiones concurrentes del mismo negocio nunca leen el mismo número.
func (r *FiscalRepo) CreateNumbered(ctx context.Context, businessID string, build repository.BuildDocumentFunc) (*entity.FiscalDocument, error) {
	var out *entity.FiscalDocument
	err := r.ledger.RunInTx(ctx, func(q Querier) error {
		cfg, err := scanFiscalConfig(q.QueryRow(ctx, `
			UPDATE fiscal_configs SET proximo_numero = proximo_numero + 1, updated_at = now()
			WHERE business_id = $1
			RETURNING `+fiscalConfigColumns, businessID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("reserve fiscal number: %w", err)
		}

		doc, err := build(cfg, cfg.NextNumber-1)
		if err != nil {
			return err
		}
		if err := insertFiscalDocument(ctx, q, doc); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: la venta ya tiene NFC-e", domain.ErrConflict)
			}
			return fmt.Errorf("insert fiscal document: %w", err)
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertFiscalDocument(ctx context.Context, q Querier, d *entity.FiscalDocument) error {
	items, err := json.Marshal(d.Items)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO fiscal_documents (`+fiscalDocumentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25)`,
		d.ID, d.BusinessID, d.SaleID, d.Numero, d.Serie, d.AccessKey, d.CodigoNumerico, d.Status,
		d.Environment, d.PaymentMethod, d.Total, d.ICMSTotal, nullIfEmpty(d.Protocol), nullIfEmpty(d.CancelProtocol),
		nullIfEmpty(d.RejectionCode), nullIfEmpty(d.RejectionReason), d.Observations, d.XMLGenerated,
		nullIfEmpty(d.XMLAuthorized), items, d.IssuedAt, d.AuthorizedAt, d.CancelledAt, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *FiscalRepo) GetByID(ctx context.Context, businessID, id string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `WHERE id = $1 AND business_id = $2`, id, businessID)
}

func (r *FiscalRepo) GetBySaleID(ctx context.Context, businessID, saleID string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `WHERE sale_id = $1 AND business_id = $2`, saleID, businessID)
}

func (r *FiscalRepo) getOne(ctx context.Context, where string, args ...any) (*entity.FiscalDocument, error) {
	d, err := scanFiscalDocument(r.ledger.Pool().QueryRow(ctx,
		`SELECT `+fiscalDocumentColumns+` FROM fiscal_documents `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get fiscal document: %w", err)
	}
	return d, nil
}

// UpdateStatus compare-and-set sobre status; las columnas de identidad (número, clave, venta) no se tocan.
func (r *FiscalRepo) UpdateStatus(ctx context.Context, d *entity.FiscalDocument, from string) error {
	pool := r.ledger.Pool()
	tag, err := pool.Exec(ctx, `
		UPDATE fiscal_documents SET
			status = $1, protocol = $2, cancel_protocol = $3, rejection_code = $4, rejection_reason = $5,
			observations = $6, xml_authorized = $7, authorized_at = $8, cancelled_at = $9, updated_at = $10
		WHERE id = $11 AND business_id = $12 AND status = $13`,
		d.Status, nullIfEmpty(d.Protocol), nullIfEmpty(d.CancelProtocol), nullIfEmpty(d.RejectionCode),
		nullIfEmpty(d.RejectionReason), d.Observations, nullIfEmpty(d.XMLAuthorized), d.AuthorizedAt,
		d.CancelledAt, d.UpdatedAt, d.ID, d.BusinessID, from)
	if err != nil {
		return fmt.Errorf("update fiscal document: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = pool.QueryRow(ctx, `SELECT status FROM fiscal_documents WHERE id = $1 AND business_id = $2`,
		d.ID, d.BusinessID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read fiscal document status: %w", err)
	}
	return fmt.Errorf("%w: estado almacenado %s, esperado %s", domain.ErrInvalidState, current, from)
}
