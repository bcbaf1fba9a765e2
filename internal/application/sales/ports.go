package sales

import "context"

// IdempotencyStore asocia una Idempotency-Key del cliente con la venta creada.
type IdempotencyStore interface {
	// Reserve marca la clave como en curso. Si ya existía devuelve reserved=false y el ID de la
	// venta registrada (vacío si la otra petición todavía no terminó).
	Reserve(ctx context.Context, businessID, key string) (saleID string, reserved bool, err error)
	// Complete registra el ID de la venta confirmada.
	Complete(ctx context.Context, businessID, key, saleID string) error
	// Release libera la clave tras una venta fallida para permitir reintentos.
	Release(ctx context.Context, businessID, key string) error
}
