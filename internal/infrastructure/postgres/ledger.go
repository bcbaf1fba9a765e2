package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx; los repos aceptan cualquiera de los dos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// Statement sentencia de un lote atómico. Si afecta menos de MinRows filas el lote
// se aborta con NoRowsErr (p. ej. el decremento condicional de stock).
type Statement struct {
	SQL       string
	Args      []any
	MinRows   int64
	NoRowsErr error
}

// Ledger ejecuta lotes de escritura todo-o-nada sobre PostgreSQL.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Pool devuelve el pool para lecturas fuera de transacción.
func (l *Ledger) Pool() *pgxpool.Pool { return l.pool }

// RunInTx inicia una transacción, ejecuta fn y hace Commit o Rollback.
func (l *Ledger) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ExecuteAtomic ejecuta las sentencias en orden dentro de una transacción.
// Devuelve el total de filas afectadas; ante cualquier fallo no queda nada escrito.
func (l *Ledger) ExecuteAtomic(ctx context.Context, stmts []Statement) (int64, error) {
	var total int64
	err := l.RunInTx(ctx, func(q Querier) error {
		for i, st := range stmts {
			tag, err := q.Exec(ctx, st.SQL, st.Args...)
			if err != nil {
				return fmt.Errorf("sentencia %d: %w", i, err)
			}
			if tag.RowsAffected() < st.MinRows {
				if st.NoRowsErr != nil {
					return st.NoRowsErr
				}
				return fmt.Errorf("sentencia %d: %d filas afectadas, se esperaban %d", i, tag.RowsAffected(), st.MinRows)
			}
			total += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
