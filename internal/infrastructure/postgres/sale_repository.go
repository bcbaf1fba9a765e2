package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo persistencia de ventas. CommitSale corre como un único lote atómico del Ledger.
type SaleRepo struct {
	ledger *Ledger
}

func NewSaleRepository(ledger *Ledger) *SaleRepo {
	return &SaleRepo{ledger: ledger}
}

// CommitSale cabecera, ítems, decremento condicional de stock y movimientos en una transacción.
// El decremento usa WHERE stock >= qty: cero filas afectadas aborta el lote con ErrInsufficientStock.
func (r *SaleRepo) CommitSale(ctx context.Context, sale *entity.Sale, movements []entity.StockMovement) error {
	stmts := make([]Statement, 0, 1+len(sale.Items)+2*len(movements))
	stmts = append(stmts, Statement{
		SQL: `INSERT INTO sales (id, business_id, user_id, total, payment_method, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		Args: []any{sale.ID, sale.BusinessID, sale.UserID, sale.Total, sale.PaymentMethod, sale.CreatedAt},
	})
	for i, it := range sale.Items {
		stmts = append(stmts, Statement{
			SQL: `INSERT INTO sale_items (id, sale_id, business_id, line, product_id, product_name, quantity, unit_price, total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			Args: []any{it.ID, sale.ID, sale.BusinessID, i + 1, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Total},
		})
	}
	for _, m := range movements {
		stmts = append(stmts, stockStatement(m), movementInsert(m))
	}

	_, err := r.ledger.ExecuteAtomic(ctx, stmts)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInsufficientStock):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%w: venta %s ya registrada", domain.ErrConflict, sale.ID)
	default:
		return fmt.Errorf("commit sale: %w", err)
	}
}

// stockStatement decremento (saida) condicional o incremento (entrada) filtrado por negocio.
func stockStatement(m entity.StockMovement) Statement {
	if m.Type == entity.MovementEntrada {
		return Statement{
			SQL: `UPDATE products SET stock = stock + $1, updated_at = now()
				WHERE id = $2 AND business_id = $3`,
			Args:      []any{m.Quantity, m.ProductID, m.BusinessID},
			MinRows:   1,
			NoRowsErr: fmt.Errorf("%w: producto %s", domain.ErrNotFound, m.ProductID),
		}
	}
	return Statement{
		SQL: `UPDATE products SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND business_id = $3 AND stock >= $1`,
		Args:      []any{m.Quantity, m.ProductID, m.BusinessID},
		MinRows:   1,
		NoRowsErr: fmt.Errorf("%w: producto %s", domain.ErrInsufficientStock, m.ProductID),
	}
}

func movementInsert(m entity.StockMovement) Statement {
	return Statement{
		SQL: `INSERT INTO stock_movements (id, business_id, product_id, type, quantity, reason, unit_cost, total_cost, sale_id, user_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		Args: []any{m.ID, m.BusinessID, m.ProductID, m.Type, m.Quantity, m.Reason,
			m.UnitCost, m.TotalCost, nullIfEmpty(m.SaleID), nullIfEmpty(m.UserID), m.CreatedAt},
	}
}

// GetByID cabecera e ítems de una venta del negocio.
func (r *SaleRepo) GetByID(ctx context.Context, businessID, id string) (*entity.Sale, error) {
	q := r.ledger.Pool()
	var s entity.Sale
	err := q.QueryRow(ctx, `
		SELECT id, business_id, user_id, total, payment_method, created_at
		FROM sales WHERE id = $1 AND business_id = $2`, id, businessID).
		Scan(&s.ID, &s.BusinessID, &s.UserID, &s.Total, &s.PaymentMethod, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, total
		FROM sale_items WHERE sale_id = $1 AND business_id = $2 ORDER BY line`, id, businessID)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		s.Items = append(s.Items, it)
	}
	return &s, rows.Err()
}
