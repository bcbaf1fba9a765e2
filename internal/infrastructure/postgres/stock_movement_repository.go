package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/inventory"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo movimientos manuales (entrada/saida) y su listado.
type StockMovementRepo struct {
	ledger *Ledger
}

func NewStockMovementRepository(ledger *Ledger) *StockMovementRepo {
	return &StockMovementRepo{ledger: ledger}
}

// Apply bloquea la fila del producto (SELECT FOR UPDATE), recalcula stock y costo e inserta el movimiento.
func (r *StockMovementRepo) Apply(ctx context.Context, mov *entity.StockMovement) (*entity.Product, error) {
	var out *entity.Product
	err := r.ledger.RunInTx(ctx, func(q Querier) error {
		p, err := scanProduct(q.QueryRow(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1 AND business_id = $2 FOR UPDATE`,
			mov.ProductID, mov.BusinessID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		switch mov.Type {
		case entity.MovementSaida:
			if p.Stock < mov.Quantity {
				return fmt.Errorf("%w: producto %s", domain.ErrInsufficientStock, p.ID)
			}
			p.Stock -= mov.Quantity
		case entity.MovementEntrada:
			if mov.UnitCost != nil {
				p.Cost = inventory.WeightedAverageCost(p.Stock, p.Cost, mov.Quantity, *mov.UnitCost)
			}
			p.Stock += mov.Quantity
		default:
			return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrValidation, mov.Type)
		}

		if err := q.QueryRow(ctx, `
			UPDATE products SET stock = $1, cost = $2, updated_at = now()
			WHERE id = $3 AND business_id = $4
			RETURNING updated_at`, p.Stock, p.Cost, p.ID, p.BusinessID).Scan(&p.UpdatedAt); err != nil {
			return fmt.Errorf("update product stock: %w", err)
		}
		ins := movementInsert(*mov)
		if _, err := q.Exec(ctx, ins.SQL, ins.Args...); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByProduct movimientos del producto, más recientes primero.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, businessID, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	rows, err := r.ledger.Pool().Query(ctx, `
		SELECT id, business_id, product_id, type, quantity, reason, unit_cost, total_cost, sale_id, user_id, created_at
		FROM stock_movements
		WHERE business_id = $1 AND product_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, businessID, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var saleID, userID *string
		if err := rows.Scan(&m.ID, &m.BusinessID, &m.ProductID, &m.Type, &m.Quantity, &m.Reason,
			&m.UnitCost, &m.TotalCost, &saleID, &userID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.SaleID, m.UserID = deref(saleID), deref(userID)
		list = append(list, &m)
	}
	return list, rows.Err()
}
