// Package redisx almacén de Idempotency-Key sobre Redis, compartido entre réplicas de la API.
package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/pdv-nfce/internal/application/sales"
)

const keyIdemSale = "idem:sale:%s:%s"

// pending valor mientras la venta de la clave todavía no se confirmó.
const pending = "-"

var _ sales.IdempotencyStore = (*Idempotency)(nil)

// New cliente Redis con timeouts cortos; la idempotencia no debe frenar el checkout.
func New(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

type Idempotency struct {
	rdb        *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotency ttl rige la clave con venta registrada; pendingTTL la marca "en curso",
// que debe sobrevivir al lote de la venta pero no bloquear reintentos si Complete nunca llega.
func NewIdempotency(rdb *redis.Client, ttl, pendingTTL time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = time.Minute
	}
	return &Idempotency{rdb: rdb, ttl: ttl, pendingTTL: pendingTTL}
}

// Reserve SET NX: solo una petición por clave gana la reserva.
func (i *Idempotency) Reserve(ctx context.Context, businessID, key string) (string, bool, error) {
	k := fmt.Sprintf(keyIdemSale, businessID, key)
	ok, err := i.rdb.SetNX(ctx, k, pending, i.pendingTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis reserve: %w", err)
	}
	if ok {
		return "", true, nil
	}
	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expiró entre SETNX y GET
		return i.Reserve(ctx, businessID, key)
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	if v == pending {
		return "", false, nil
	}
	return v, false, nil
}

func (i *Idempotency) Complete(ctx context.Context, businessID, key, saleID string) error {
	if err := i.rdb.Set(ctx, fmt.Sprintf(keyIdemSale, businessID, key), saleID, i.ttl).Err(); err != nil {
		return fmt.Errorf("redis complete: %w", err)
	}
	return nil
}

func (i *Idempotency) Release(ctx context.Context, businessID, key string) error {
	if err := i.rdb.Del(ctx, fmt.Sprintf(keyIdemSale, businessID, key)).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
