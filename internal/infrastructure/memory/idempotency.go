package memory

import (
	"context"
	"sync"
)

// Idempotency implementación en memoria de sales.IdempotencyStore (sin expiración).
type Idempotency struct {
	mu   sync.Mutex
	keys map[string]string // "" = en curso
}

func NewIdempotency() *Idempotency {
	return &Idempotency{keys: make(map[string]string)}
}

func (i *Idempotency) Reserve(_ context.Context, businessID, key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	k := businessID + ":" + key
	if saleID, ok := i.keys[k]; ok {
		return saleID, false, nil
	}
	i.keys[k] = ""
	return "", true, nil
}

func (i *Idempotency) Complete(_ context.Context, businessID, key, saleID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[businessID+":"+key] = saleID
	return nil
}

func (i *Idempotency) Release(_ context.Context, businessID, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.keys, businessID+":"+key)
	return nil
}
