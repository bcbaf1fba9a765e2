package sales_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/application/sales"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/memory"
)

const biz = "biz-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recorder struct {
	mu  sync.Mutex
	got []events.Envelope
}

func (r *recorder) Publish(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, env)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.got {
		out = append(out, e.EventType)
	}
	return out
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	st.PutProduct(&entity.Product{ID: "A", BusinessID: biz, Name: "Café 500g", Price: dec("8.50"), Stock: 10, MinStock: 8})
	st.PutProduct(&entity.Product{ID: "B", BusinessID: biz, Name: "Pão de queijo", Price: dec("3.20"), Stock: 5})
	st.PutProduct(&entity.Product{ID: "X", BusinessID: "otro", Name: "Ajeno", Price: dec("1"), Stock: 100})
	return st
}

func newUC(st *memory.Store, pub events.Publisher, idem sales.IdempotencyStore) *sales.CompleteSaleUseCase {
	return sales.NewCompleteSaleUseCase(st.Sales(), st, idem, pub, zerolog.Nop())
}

func cart() dto.CompleteSaleRequest {
	return dto.CompleteSaleRequest{
		PaymentMethod: entity.PaymentDinheiro,
		Items: []dto.SaleItemRequest{
			{ProductID: "A", ProductName: "Café 500g", Quantity: 2, UnitPrice: dec("8.50")},
			{ProductID: "B", ProductName: "Pão de queijo", Quantity: 1, UnitPrice: dec("3.20")},
		},
	}
}

// ─── Escenario de venta ──────────────────────────────────────────────────────

func TestCompleteSale_DosProductos(t *testing.T) {
	st := seed(t)
	pub := &recorder{}
	uc := newUC(st, pub, nil)

	resp, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "")
	require.NoError(t, err)

	assert.Equal(t, "20.20", resp.Total.StringFixed(2))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "17.00", resp.Items[0].Total.StringFixed(2))
	assert.Equal(t, "3.20", resp.Items[1].Total.StringFixed(2))

	sum := decimal.Zero
	for _, it := range resp.Items {
		sum = sum.Add(it.Total)
		assert.True(t, it.Total.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))))
	}
	assert.True(t, sum.Equal(resp.Total))

	a, err := st.GetByID(context.Background(), biz, "A")
	require.NoError(t, err)
	b, err := st.GetByID(context.Background(), biz, "B")
	require.NoError(t, err)
	assert.Equal(t, 8, a.Stock)
	assert.Equal(t, 4, b.Stock)

	movA, err := st.ListByProduct(context.Background(), biz, "A", 10, 0)
	require.NoError(t, err)
	require.Len(t, movA, 1)
	assert.Equal(t, entity.MovementSaida, movA[0].Type)
	assert.Equal(t, 2, movA[0].Quantity)
	assert.Equal(t, "Venda", movA[0].Reason)
	assert.Equal(t, resp.ID, movA[0].SaleID)

	movB, err := st.ListByProduct(context.Background(), biz, "B", 10, 0)
	require.NoError(t, err)
	require.Len(t, movB, 1)
	assert.Equal(t, 1, movB[0].Quantity)

	saved, err := st.Sales().GetByID(context.Background(), biz, resp.ID)
	require.NoError(t, err)
	assert.True(t, saved.Total.Equal(resp.Total))
	assert.Len(t, saved.Items, 2)

	// A queda en 8 con mínimo 8: cruza el umbral
	assert.Equal(t, []string{
		events.TypeSaleCompleted,
		events.TypeStockUpdated,
		events.TypeStockLow,
		events.TypeStockUpdated,
	}, pub.types())
}

func TestCompleteSale_NombreHistoricoPorDefecto(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)

	in := cart()
	in.Items[1].ProductName = ""
	resp, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
	require.NoError(t, err)
	assert.Equal(t, "Pão de queijo", resp.Items[1].ProductName)

	// el snapshot no cambia aunque el producto se renombre
	st.PutProduct(&entity.Product{ID: "B", BusinessID: biz, Name: "Pão de queijo 2", Stock: 4})
	saved, err := st.Sales().GetByID(context.Background(), biz, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pão de queijo", saved.Items[1].ProductName)
}

// ─── Atomicidad ──────────────────────────────────────────────────────────────

func TestCompleteSale_StockInsuficienteNoPersisteNada(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)

	in := cart()
	in.Items[1].Quantity = 6 // B tiene 5
	_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	a, _ := st.GetByID(context.Background(), biz, "A")
	b, _ := st.GetByID(context.Background(), biz, "B")
	assert.Equal(t, 10, a.Stock)
	assert.Equal(t, 5, b.Stock)

	nSales, nMov, _ := st.Counts()
	assert.Zero(t, nSales)
	assert.Zero(t, nMov)
}

func TestCompleteSale_MismoProductoEnDosLineas(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)

	in := dto.CompleteSaleRequest{
		PaymentMethod: entity.PaymentPix,
		Items: []dto.SaleItemRequest{
			{ProductID: "B", Quantity: 3, UnitPrice: dec("3.20")},
			{ProductID: "B", Quantity: 3, UnitPrice: dec("3.20")},
		},
	}
	_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	b, _ := st.GetByID(context.Background(), biz, "B")
	assert.Equal(t, 5, b.Stock)
}

func TestCompleteSale_ConcurrentesNoSobrevenden(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)

	in := dto.CompleteSaleRequest{
		PaymentMethod: entity.PaymentDebito,
		Items:         []dto.SaleItemRequest{{ProductID: "B", Quantity: 1, UnitPrice: dec("3.20")}},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 15, short)
	b, _ := st.GetByID(context.Background(), biz, "B")
	assert.Equal(t, 0, b.Stock)
}

// ─── Validación ──────────────────────────────────────────────────────────────

func TestCompleteSale_Validacion(t *testing.T) {
	cases := map[string]func(in *dto.CompleteSaleRequest){
		"sin items":        func(in *dto.CompleteSaleRequest) { in.Items = nil },
		"cantidad cero":    func(in *dto.CompleteSaleRequest) { in.Items[0].Quantity = 0 },
		"precio negativo":  func(in *dto.CompleteSaleRequest) { in.Items[0].UnitPrice = dec("-1") },
		"sin producto":     func(in *dto.CompleteSaleRequest) { in.Items[0].ProductID = "" },
		"pago desconocido": func(in *dto.CompleteSaleRequest) { in.PaymentMethod = "cheque" },
		"total distinto": func(in *dto.CompleteSaleRequest) {
			tot := dec("20.00")
			in.Total = &tot
		},
		"total de linea distinto": func(in *dto.CompleteSaleRequest) {
			tot := dec("17.01")
			in.Items[0].Total = &tot
		},
		"producto de otro negocio": func(in *dto.CompleteSaleRequest) { in.Items[0].ProductID = "X" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			st := seed(t)
			uc := newUC(st, nil, nil)
			in := cart()
			mutate(&in)

			_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
			require.ErrorIs(t, err, domain.ErrValidation)

			nSales, nMov, _ := st.Counts()
			assert.Zero(t, nSales)
			assert.Zero(t, nMov)
		})
	}
}

func TestCompleteSale_TotalInformadoCorrecto(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)
	in := cart()
	tot := dec("20.2")
	in.Total = &tot

	_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
	require.NoError(t, err)
}

func TestCompleteSale_PrecioConMasDeDosDecimales(t *testing.T) {
	cases := map[string]func(in *dto.CompleteSaleRequest){
		"precio unitario": func(in *dto.CompleteSaleRequest) {
			in.Items = []dto.SaleItemRequest{{ProductID: "B", Quantity: 3, UnitPrice: dec("0.333")}}
		},
		"total de linea": func(in *dto.CompleteSaleRequest) {
			tot := dec("17.001")
			in.Items[0].Total = &tot
		},
		"total de la venta": func(in *dto.CompleteSaleRequest) {
			tot := dec("20.201")
			in.Total = &tot
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			st := seed(t)
			uc := newUC(st, nil, nil)
			in := cart()
			mutate(&in)

			_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
			require.ErrorIs(t, err, domain.ErrValidation)

			nSales, nMov, _ := st.Counts()
			assert.Zero(t, nSales)
			assert.Zero(t, nMov)
			b, _ := st.GetByID(context.Background(), biz, "B")
			assert.Equal(t, 5, b.Stock)
		})
	}
}

func TestCompleteSale_CerosDeEscalaSeAceptan(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)
	in := dto.CompleteSaleRequest{
		PaymentMethod: entity.PaymentPix,
		Items:         []dto.SaleItemRequest{{ProductID: "B", Quantity: 3, UnitPrice: dec("0.330")}},
	}

	resp, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "")
	require.NoError(t, err)
	assert.True(t, resp.Total.Equal(dec("0.99")))
	assert.True(t, resp.Items[0].Total.Equal(resp.Items[0].UnitPrice.Mul(decimal.NewFromInt(3))))
}

// ─── Fallas del lote ─────────────────────────────────────────────────────────

type failingSales struct {
	*memory.SaleView
}

func (failingSales) CommitSale(context.Context, *entity.Sale, []entity.StockMovement) error {
	return errors.New("connection reset by peer")
}

func TestCompleteSale_FallaDelLoteEsTransactionFailed(t *testing.T) {
	st := seed(t)
	uc := sales.NewCompleteSaleUseCase(failingSales{st.Sales()}, st, nil, nil, zerolog.Nop())

	_, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "")
	require.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestCompleteSale_ContextoCanceladoNoInterrumpeElLote(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := uc.CompleteSale(ctx, biz, "user-1", cart(), "")
	require.NoError(t, err)
}

// ─── Idempotencia ────────────────────────────────────────────────────────────

func TestCompleteSale_IdempotencyKeyDevuelveLaMismaVenta(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, memory.NewIdempotency())

	first, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.NoError(t, err)
	second, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Replayed)
	a, _ := st.GetByID(context.Background(), biz, "A")
	assert.Equal(t, 8, a.Stock)
}

func TestCompleteSale_IdempotencyKeyEnCurso(t *testing.T) {
	st := seed(t)
	idem := memory.NewIdempotency()
	_, reserved, err := idem.Reserve(context.Background(), biz, "key-1")
	require.NoError(t, err)
	require.True(t, reserved)

	uc := newUC(st, nil, idem)
	_, err = uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCompleteSale_IdempotencyKeyLiberadaTrasFalla(t *testing.T) {
	st := seed(t)
	idem := memory.NewIdempotency()
	uc := newUC(st, nil, idem)

	in := cart()
	in.Items[0].Quantity = 50
	_, err := uc.CompleteSale(context.Background(), biz, "user-1", in, "key-1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.NoError(t, err)
}

// flakyIdem falla las primeras `fails` llamadas a Complete.
type flakyIdem struct {
	*memory.Idempotency
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakyIdem) Complete(ctx context.Context, businessID, key, saleID string) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.fails
	f.mu.Unlock()
	if fail {
		return errors.New("redis: i/o timeout")
	}
	return f.Idempotency.Complete(ctx, businessID, key, saleID)
}

func TestCompleteSale_IdempotencyKeyRegistroReintentado(t *testing.T) {
	st := seed(t)
	idem := &flakyIdem{Idempotency: memory.NewIdempotency(), fails: 2}
	uc := newUC(st, nil, idem)

	first, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, 3, idem.calls)

	second, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Replayed)
}

func TestCompleteSale_IdempotencyKeyRegistroFallidoNoAnulaLaVenta(t *testing.T) {
	st := seed(t)
	idem := &flakyIdem{Idempotency: memory.NewIdempotency(), fails: 100}
	uc := newUC(st, nil, idem)

	resp, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "key-1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)

	nSales, _, _ := st.Counts()
	assert.Equal(t, 1, nSales)
}

// ─── Lectura ─────────────────────────────────────────────────────────────────

func TestGetSale(t *testing.T) {
	st := seed(t)
	uc := newUC(st, nil, nil)
	resp, err := uc.CompleteSale(context.Background(), biz, "user-1", cart(), "")
	require.NoError(t, err)

	get := sales.NewGetSaleUseCase(st.Sales())
	got, err := get.GetSale(context.Background(), biz, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.Len(t, got.Items, 2)

	_, err = get.GetSale(context.Background(), "otro", resp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaleMovements_OrdenadasPorProducto(t *testing.T) {
	sale := &entity.Sale{ID: "s", BusinessID: biz, Items: []entity.SaleItem{
		{ProductID: "C", Quantity: 1}, {ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 3},
	}}
	movs := sales.SaleMovements(sale)
	require.Len(t, movs, 3)
	assert.Equal(t, "A", movs[0].ProductID)
	assert.Equal(t, "B", movs[1].ProductID)
	assert.Equal(t, "C", movs[2].ProductID)
	for _, m := range movs {
		assert.Equal(t, entity.MovementSaida, m.Type)
		assert.Equal(t, "s", m.SaleID)
	}
}
