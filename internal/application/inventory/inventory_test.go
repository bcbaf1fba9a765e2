package inventory_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/jhoicas/pdv-nfce/internal/application/inventory"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/memory"
)

const biz = "biz-1"

type recorder struct{ got []events.Envelope }

func (r *recorder) Publish(_ context.Context, env events.Envelope) error {
	r.got = append(r.got, env)
	return nil
}

func seed() *memory.Store {
	st := memory.New()
	st.PutProduct(&entity.Product{ID: "A", BusinessID: biz, Name: "Arroz", Stock: 2, MinStock: 5, Cost: decimal.NewFromInt(4)})
	st.PutProduct(&entity.Product{ID: "B", BusinessID: biz, Name: "Bolacha", Stock: 10, MinStock: 3})
	st.PutProduct(&entity.Product{ID: "C", BusinessID: biz, Name: "Cerveja", Stock: 3, MinStock: 3})
	st.PutProduct(&entity.Product{ID: "D", BusinessID: biz, Name: "Detergente", Stock: 0, MinStock: 0})
	st.PutProduct(&entity.Product{ID: "E", BusinessID: "otro", Name: "Ajeno", Stock: 0, MinStock: 9})
	return st
}

// ─── Consultas ───────────────────────────────────────────────────────────────

func TestGetStock(t *testing.T) {
	uc := inventory.NewStockUseCase(seed(), nil)

	got, err := uc.GetStock(context.Background(), biz, "B")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	_, err = uc.GetStock(context.Background(), biz, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.GetStock(context.Background(), biz, "E")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLowStock_OrdenPorHolgura(t *testing.T) {
	uc := inventory.NewStockUseCase(seed(), nil)

	list, err := uc.LowStock(context.Background(), biz)
	require.NoError(t, err)
	require.Len(t, list, 2) // D tiene mínimo 0, B está por encima, E es de otro negocio

	assert.Equal(t, "A", list[0].ProductID)
	assert.Equal(t, 3, list[0].Missing)
	assert.Equal(t, "C", list[1].ProductID)
	assert.Equal(t, 0, list[1].Missing)
}

// ─── Movimientos manuales ────────────────────────────────────────────────────

func TestRegisterMovement_EntradaRecalculaCosto(t *testing.T) {
	st := seed()
	pub := &recorder{}
	uc := inventory.NewRegisterMovementUseCase(st, st, pub, zerolog.Nop())

	cost := decimal.NewFromInt(10)
	resp, err := uc.RegisterMovement(context.Background(), biz, "user-1", dto.RegisterMovementRequest{
		ProductID: "A", Type: entity.MovementEntrada, Quantity: 2, UnitCost: &cost, Reason: "Compra NF 123",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.StockAfter)
	assert.Equal(t, 4, *resp.StockAfter)
	assert.Equal(t, "20.00", resp.TotalCost.StringFixed(2))

	p, err := st.GetByID(context.Background(), biz, "A")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)
	// (2*4 + 2*10) / 4 = 7
	assert.Equal(t, "7.00", p.Cost.StringFixed(2))

	require.Len(t, pub.got, 1)
	assert.Equal(t, events.TypeStockUpdated, pub.got[0].EventType)
}

func TestRegisterMovement_SaidaSinStock(t *testing.T) {
	st := seed()
	uc := inventory.NewRegisterMovementUseCase(st, st, nil, zerolog.Nop())

	_, err := uc.RegisterMovement(context.Background(), biz, "user-1", dto.RegisterMovementRequest{
		ProductID: "A", Type: entity.MovementSaida, Quantity: 3, Reason: "Perda",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, _ := st.GetByID(context.Background(), biz, "A")
	assert.Equal(t, 2, p.Stock)
	_, nMov, _ := st.Counts()
	assert.Zero(t, nMov)
}

func TestRegisterMovement_SaidaCruzaMinimo(t *testing.T) {
	st := seed()
	pub := &recorder{}
	uc := inventory.NewRegisterMovementUseCase(st, st, pub, zerolog.Nop())

	_, err := uc.RegisterMovement(context.Background(), biz, "user-1", dto.RegisterMovementRequest{
		ProductID: "B", Type: entity.MovementSaida, Quantity: 7,
	})
	require.NoError(t, err)

	require.Len(t, pub.got, 2)
	assert.Equal(t, events.TypeStockLow, pub.got[1].EventType)
}

func TestRegisterMovement_Validacion(t *testing.T) {
	st := seed()
	uc := inventory.NewRegisterMovementUseCase(st, st, nil, zerolog.Nop())
	neg := decimal.NewFromInt(-1)
	pos := decimal.NewFromInt(1)

	bad := []dto.RegisterMovementRequest{
		{Type: entity.MovementEntrada, Quantity: 1},
		{ProductID: "A", Type: "ajuste", Quantity: 1},
		{ProductID: "A", Type: entity.MovementEntrada, Quantity: 0},
		{ProductID: "A", Type: entity.MovementEntrada, Quantity: 1, UnitCost: &neg},
		{ProductID: "A", Type: entity.MovementSaida, Quantity: 1, UnitCost: &pos},
	}
	for _, in := range bad {
		_, err := uc.RegisterMovement(context.Background(), biz, "user-1", in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestListMovements(t *testing.T) {
	st := seed()
	reg := inventory.NewRegisterMovementUseCase(st, st, nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := reg.RegisterMovement(context.Background(), biz, "user-1", dto.RegisterMovementRequest{
			ProductID: "B", Type: entity.MovementEntrada, Quantity: i + 1,
		})
		require.NoError(t, err)
	}

	uc := inventory.NewStockUseCase(st, st)
	list, err := uc.ListMovements(context.Background(), biz, "B", dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].Quantity) // más reciente primero
	assert.Equal(t, "Ajuste manual", list[0].Reason)

	list, err = uc.ListMovements(context.Background(), biz, "B", dto.PageRequest{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Quantity)

	_, err = uc.ListMovements(context.Background(), biz, "E", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
