// Package memory implementa los puertos del ledger en memoria. Cada operación de escritura
// toma el lock exclusivo, valida sobre una copia y solo entonces publica los cambios,
// lo que reproduce el todo-o-nada de la transacción de PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/inventory"
	"github.com/jhoicas/pdv-nfce/internal/domain/repository"
)

var (
	_ repository.ProductRepository       = (*Store)(nil)
	_ repository.StockMovementRepository = (*Store)(nil)
)

type Store struct {
	mu sync.RWMutex

	products  map[string]*entity.Product
	sales     map[string]*entity.Sale
	movements []*entity.StockMovement
	configs   map[string]*entity.FiscalConfig
	docs      map[string]*entity.FiscalDocument
	docBySale map[string]string

	now func() time.Time
}

func New() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		sales:     make(map[string]*entity.Sale),
		configs:   make(map[string]*entity.FiscalConfig),
		docs:      make(map[string]*entity.FiscalDocument),
		docBySale: make(map[string]string),
		now:       time.Now,
	}
}

// PutProduct alta o reemplazo de un producto (seed de desarrollo y tests).
func (s *Store) PutProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

// PutFiscalConfig alta o reemplazo de la configuración fiscal de un negocio.
func (s *Store) PutFiscalConfig(c *entity.FiscalConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.configs[c.BusinessID] = &cp
}

// Counts devuelve el número de ventas, movimientos y documentos (usado en tests de atomicidad).
func (s *Store) Counts() (sales, movements, docs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sales), len(s.movements), len(s.docs)
}

// ─── Productos ───────────────────────────────────────────────────────────────

func (s *Store) GetByID(_ context.Context, businessID, id string) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || p.BusinessID != businessID {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetByIDs(_ context.Context, businessID string, ids []string) (map[string]*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.BusinessID == businessID {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *Store) ListLowStock(_ context.Context, businessID string) ([]*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Product
	for _, p := range s.products {
		if p.BusinessID == businessID && p.IsLowStock() {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Stock-out[i].MinStock, out[j].Stock-out[j].MinStock
		if si != sj {
			return si < sj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ─── Ventas ──────────────────────────────────────────────────────────────────

func (s *Store) CommitSale(_ context.Context, sale *entity.Sale, movements []entity.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sale.ID]; exists {
		return domain.ErrConflict
	}
	next, err := s.stageStock(sale.BusinessID, movements)
	if err != nil {
		return err
	}

	now := s.now()
	for id, stock := range next {
		s.products[id].Stock = stock
		s.products[id].UpdatedAt = now
	}
	s.sales[sale.ID] = cloneSale(sale)
	for i := range movements {
		m := movements[i]
		s.movements = append(s.movements, &m)
	}
	return nil
}

// stageStock calcula el stock resultante sin tocar el estado; un faltante aborta todo el lote.
func (s *Store) stageStock(businessID string, movements []entity.StockMovement) (map[string]int, error) {
	next := make(map[string]int)
	for _, m := range movements {
		p, ok := s.products[m.ProductID]
		if !ok || p.BusinessID != businessID {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrInsufficientStock, m.ProductID)
		}
		cur, staged := next[m.ProductID]
		if !staged {
			cur = p.Stock
		}
		switch m.Type {
		case entity.MovementSaida:
			if cur < m.Quantity {
				return nil, fmt.Errorf("%w: producto %s", domain.ErrInsufficientStock, m.ProductID)
			}
			cur -= m.Quantity
		case entity.MovementEntrada:
			cur += m.Quantity
		default:
			return nil, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrValidation, m.Type)
		}
		next[m.ProductID] = cur
	}
	return next, nil
}

func (s *Store) getSale(businessID, id string) (*entity.Sale, error) {
	sale, ok := s.sales[id]
	if !ok || sale.BusinessID != businessID {
		return nil, domain.ErrNotFound
	}
	return cloneSale(sale), nil
}

// Sales expone el repositorio de ventas (GetByID de Store corresponde a productos).
func (s *Store) Sales() *SaleView { return &SaleView{s: s} }

// SaleView adapta Store a repository.SaleRepository.
type SaleView struct{ s *Store }

var _ repository.SaleRepository = (*SaleView)(nil)

func (v *SaleView) CommitSale(ctx context.Context, sale *entity.Sale, movements []entity.StockMovement) error {
	return v.s.CommitSale(ctx, sale, movements)
}

func (v *SaleView) GetByID(_ context.Context, businessID, id string) (*entity.Sale, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.getSale(businessID, id)
}

// ─── Movimientos manuales ────────────────────────────────────────────────────

func (s *Store) Apply(_ context.Context, mov *entity.StockMovement) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.stageStock(mov.BusinessID, []entity.StockMovement{*mov})
	if err != nil {
		return nil, err
	}
	p := s.products[mov.ProductID]
	if mov.Type == entity.MovementEntrada && mov.UnitCost != nil {
		p.Cost = inventory.WeightedAverageCost(p.Stock, p.Cost, mov.Quantity, *mov.UnitCost)
	}
	p.Stock = next[mov.ProductID]
	p.UpdatedAt = s.now()
	m := *mov
	s.movements = append(s.movements, &m)

	cp := *p
	return &cp, nil
}

func (s *Store) ListByProduct(_ context.Context, businessID, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if m.BusinessID != businessID || m.ProductID != productID {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// ─── NFC-e ───────────────────────────────────────────────────────────────────

func (s *Store) GetConfig(_ context.Context, businessID string) (*entity.FiscalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[businessID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) CreateNumbered(_ context.Context, businessID string, build repository.BuildDocumentFunc) (*entity.FiscalDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.configs[businessID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cfg := *c
	numero := cfg.NextNumber
	cfg.NextNumber++

	doc, err := build(&cfg, numero)
	if err != nil {
		return nil, err
	}
	if _, exists := s.docBySale[doc.SaleID]; exists {
		return nil, fmt.Errorf("%w: la venta ya tiene NFC-e", domain.ErrConflict)
	}

	cfg.UpdatedAt = s.now()
	s.configs[businessID] = &cfg
	s.docs[doc.ID] = cloneDoc(doc)
	s.docBySale[doc.SaleID] = doc.ID
	return cloneDoc(doc), nil
}

func (s *Store) Fiscal() *FiscalView { return &FiscalView{s: s} }

// FiscalView adapta Store a repository.FiscalRepository.
type FiscalView struct{ s *Store }

var _ repository.FiscalRepository = (*FiscalView)(nil)

func (v *FiscalView) GetConfig(ctx context.Context, businessID string) (*entity.FiscalConfig, error) {
	return v.s.GetConfig(ctx, businessID)
}

func (v *FiscalView) CreateNumbered(ctx context.Context, businessID string, build repository.BuildDocumentFunc) (*entity.FiscalDocument, error) {
	return v.s.CreateNumbered(ctx, businessID, build)
}

func (v *FiscalView) GetByID(_ context.Context, businessID, id string) (*entity.FiscalDocument, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	d, ok := v.s.docs[id]
	if !ok || d.BusinessID != businessID {
		return nil, domain.ErrNotFound
	}
	return cloneDoc(d), nil
}

func (v *FiscalView) GetBySaleID(ctx context.Context, businessID, saleID string) (*entity.FiscalDocument, error) {
	v.s.mu.RLock()
	id, ok := v.s.docBySale[saleID]
	v.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.GetByID(ctx, businessID, id)
}

func (v *FiscalView) UpdateStatus(_ context.Context, doc *entity.FiscalDocument, from string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cur, ok := v.s.docs[doc.ID]
	if !ok || cur.BusinessID != doc.BusinessID {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return fmt.Errorf("%w: estado almacenado %s, esperado %s", domain.ErrInvalidState, cur.Status, from)
	}
	v.s.docs[doc.ID] = cloneDoc(doc)
	return nil
}

func cloneSale(s *entity.Sale) *entity.Sale {
	cp := *s
	cp.Items = append([]entity.SaleItem(nil), s.Items...)
	return &cp
}

func cloneDoc(d *entity.FiscalDocument) *entity.FiscalDocument {
	cp := *d
	cp.Items = append([]entity.FiscalItem(nil), d.Items...)
	return &cp
}
