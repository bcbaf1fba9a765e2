package fiscal_test

import (
	"errors"
	"testing"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/domain/fiscal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Máquina de estados ──────────────────────────────────────────────────────

func TestCanTransition(t *testing.T) {
	legal := [][2]string{
		{entity.NFCeStatusPendente, entity.NFCeStatusAutorizada},
		{entity.NFCeStatusPendente, entity.NFCeStatusRejeitada},
		{entity.NFCeStatusAutorizada, entity.NFCeStatusCancelada},
	}
	for _, tr := range legal {
		assert.True(t, fiscal.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	illegal := [][2]string{
		{entity.NFCeStatusPendente, entity.NFCeStatusCancelada},
		{entity.NFCeStatusAutorizada, entity.NFCeStatusPendente},
		{entity.NFCeStatusAutorizada, entity.NFCeStatusRejeitada},
		{entity.NFCeStatusRejeitada, entity.NFCeStatusAutorizada},
		{entity.NFCeStatusRejeitada, entity.NFCeStatusPendente},
		{entity.NFCeStatusCancelada, entity.NFCeStatusAutorizada},
		{"desconocido", entity.NFCeStatusAutorizada},
	}
	for _, tr := range illegal {
		assert.False(t, fiscal.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	assert.True(t, fiscal.IsFinal(entity.NFCeStatusCancelada))
	assert.True(t, fiscal.IsFinal(entity.NFCeStatusRejeitada))
	assert.False(t, fiscal.IsFinal(entity.NFCeStatusPendente))
	assert.False(t, fiscal.IsValidStatus("borrador"))
}

func TestCheckTransmit(t *testing.T) {
	assert.NoError(t, fiscal.CheckTransmit(entity.NFCeStatusPendente))
	for _, s := range []string{entity.NFCeStatusAutorizada, entity.NFCeStatusRejeitada, entity.NFCeStatusCancelada} {
		assert.ErrorIs(t, fiscal.CheckTransmit(s), domain.ErrAlreadyTransmitted)
	}
}

func TestCheckCancel(t *testing.T) {
	_, err := fiscal.CheckCancel(entity.NFCeStatusPendente, "cliente desistiu da compra")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = fiscal.CheckCancel(entity.NFCeStatusRejeitada, "cliente desistiu da compra")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = fiscal.CheckCancel(entity.NFCeStatusAutorizada, "0123456789")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrJustificationTooShort))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// 14 caracteres útiles rodeados de espacios
	_, err = fiscal.CheckCancel(entity.NFCeStatusAutorizada, "   abcdefghijklmn   ")
	assert.ErrorIs(t, err, domain.ErrJustificationTooShort)

	// se cuentan runas, no bytes: 15 caracteres con acentos
	j, err := fiscal.CheckCancel(entity.NFCeStatusAutorizada, " Devolução total ")
	require.NoError(t, err)
	assert.Equal(t, "Devolução total", j)
	assert.Len(t, []rune(j), 15)
}

// ─── ICMS ────────────────────────────────────────────────────────────────────

func TestICMS_Redondeo(t *testing.T) {
	assert.Equal(t, "3.64", fiscal.ICMS(decimal.RequireFromString("20.20"), decimal.NewFromInt(18)).StringFixed(2))
	assert.Equal(t, "0.58", fiscal.ICMS(decimal.RequireFromString("3.20"), decimal.NewFromInt(18)).StringFixed(2))
	assert.True(t, fiscal.ICMS(decimal.RequireFromString("10"), decimal.Zero).IsZero())
}

func TestBuildItems(t *testing.T) {
	items := []entity.SaleItem{
		{ProductID: "A", ProductName: "Cafe", Quantity: 2, UnitPrice: decimal.RequireFromString("8.50"), Total: decimal.RequireFromString("17.00")},
		{ProductID: "B", ProductName: "Pao", Quantity: 1, UnitPrice: decimal.RequireFromString("3.20"), Total: decimal.RequireFromString("3.20")},
	}
	rules := fiscal.TaxRules{ICMSRate: decimal.NewFromInt(18), NCM: "00000000", CFOP: "5102", CST: "00"}

	out, icms := fiscal.BuildItems(items, map[string]string{"A": "7891234567895"}, map[string]string{"B": "KG"}, rules)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Numero)
	assert.Equal(t, 2, out[1].Numero)
	assert.Equal(t, "7891234567895", out[0].Barcode)
	assert.Equal(t, "UN", out[0].Unit)
	assert.Equal(t, "KG", out[1].Unit)
	assert.Equal(t, "3.06", out[0].ICMSValue.StringFixed(2))
	assert.Equal(t, "0.58", out[1].ICMSValue.StringFixed(2))
	assert.Equal(t, "3.64", icms.StringFixed(2))
	assert.Equal(t, "5102", out[1].CFOP)
}
