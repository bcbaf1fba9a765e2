package nfce_test

import (
	"testing"
	"time"

	"github.com/jhoicas/pdv-nfce/pkg/nfce"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Chave de acesso ─────────────────────────────────────────────────────────

// Ejemplo publicado en el Manual de Orientação do Contribuinte.
func TestCheckDigit_VectorManual(t *testing.T) {
	dv, err := nfce.CheckDigit("5206043300991100250655012000000780026730161")
	require.NoError(t, err)
	assert.Equal(t, byte(5), dv)
}

func TestCheckDigit_RestoMenorQueDos(t *testing.T) {
	dv, err := nfce.CheckDigit("3524011122233300018165001000000001100000001")
	require.NoError(t, err)
	assert.Equal(t, byte(0), dv)
}

func TestCheckDigit_LongitudInvalida(t *testing.T) {
	_, err := nfce.CheckDigit("123")
	assert.Error(t, err)
	_, err = nfce.CheckDigit("520604330099110025065501200000078002673016X")
	assert.Error(t, err)
}

func TestBuildAccessKey_Layout(t *testing.T) {
	key, err := nfce.BuildAccessKey(nfce.KeyParams{
		CUF:            "43",
		EmissionDate:   time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC),
		CNPJ:           "11.222.333/0001-81",
		Serie:          1,
		Numero:         42,
		TpEmis:         nfce.TpEmisNormal,
		CodigoNumerico: "12345678",
	})
	require.NoError(t, err)
	assert.Len(t, key, nfce.KeyLength)
	assert.Equal(t, "43261011222333000181650010000000421123456788", key)

	assert.Equal(t, "43", key[0:2])
	assert.Equal(t, "2610", key[2:6])
	assert.Equal(t, "11222333000181", key[6:20])
	assert.Equal(t, "65", key[20:22])
	assert.Equal(t, "001", key[22:25])
	assert.Equal(t, "000000042", key[25:34])
	assert.Equal(t, "1", key[34:35])
	assert.Equal(t, "12345678", key[35:43])
	assert.NoError(t, nfce.ValidateAccessKey(key))
}

func TestBuildAccessKey_ParametrosInvalidos(t *testing.T) {
	base := nfce.KeyParams{
		CUF: "43", EmissionDate: time.Now(), CNPJ: "11222333000181",
		Serie: 1, Numero: 1, TpEmis: 1, CodigoNumerico: "00000001",
	}
	cases := map[string]func(p *nfce.KeyParams){
		"cuf":    func(p *nfce.KeyParams) { p.CUF = "4" },
		"cnpj":   func(p *nfce.KeyParams) { p.CNPJ = "123" },
		"serie":  func(p *nfce.KeyParams) { p.Serie = 1000 },
		"numero": func(p *nfce.KeyParams) { p.Numero = 0 },
		"tpemis": func(p *nfce.KeyParams) { p.TpEmis = 0 },
		"cnf":    func(p *nfce.KeyParams) { p.CodigoNumerico = "1234" },
		"fecha":  func(p *nfce.KeyParams) { p.EmissionDate = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, err := nfce.BuildAccessKey(p)
			assert.Error(t, err)
		})
	}
}

func TestValidateAccessKey_DetectaAlteracion(t *testing.T) {
	key := "43261011222333000181650010000000421123456788"
	require.NoError(t, nfce.ValidateAccessKey(key))

	altered := []byte(key)
	altered[30] = '9'
	assert.Error(t, nfce.ValidateAccessKey(string(altered)))

	assert.Error(t, nfce.ValidateAccessKey(key[:43]))
	// modelo 55 no es NFC-e
	assert.Error(t, nfce.ValidateAccessKey("43261011222333000181550010000000421123456788"))
}

func TestFormatAccessKey(t *testing.T) {
	assert.Equal(t, "4326 1011 2223 3300 0181 6500 1000 0000 4211 2345 6788",
		nfce.FormatAccessKey("43261011222333000181650010000000421123456788"))
}

// ─── CNPJ ────────────────────────────────────────────────────────────────────

func TestValidateCNPJ(t *testing.T) {
	assert.NoError(t, nfce.ValidateCNPJ("11.222.333/0001-81"))
	assert.NoError(t, nfce.ValidateCNPJ("11222333000181"))
	assert.Error(t, nfce.ValidateCNPJ("11222333000182"))
	assert.Error(t, nfce.ValidateCNPJ("11111111111111"))
	assert.Error(t, nfce.ValidateCNPJ("1122233300018"))
}

// ─── Catálogos y texto ───────────────────────────────────────────────────────

func TestUFCode(t *testing.T) {
	c, err := nfce.UFCode("RS")
	require.NoError(t, err)
	assert.Equal(t, "43", c)

	_, err = nfce.UFCode("XX")
	assert.Error(t, err)
}

func TestPaymentCode(t *testing.T) {
	assert.Equal(t, "01", nfce.PaymentCode("dinheiro"))
	assert.Equal(t, "17", nfce.PaymentCode("pix"))
	assert.Equal(t, "99", nfce.PaymentCode("cheque"))
	assert.True(t, nfce.IsPaymentMethod("debito"))
	assert.False(t, nfce.IsPaymentMethod("cheque"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Pao de Acucar Cafe", nfce.SanitizeText("  Pão de\tAçúcar   Café ", 0))
	assert.Equal(t, "Refri", nfce.SanitizeText("Refrigerante", 5))
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "20,20", nfce.FormatBRL(decimal.RequireFromString("20.2")))
	assert.Equal(t, "1.234.567,89", nfce.FormatBRL(decimal.RequireFromString("1234567.891")))
	assert.Equal(t, "0,00", nfce.FormatBRL(decimal.Zero))
	assert.Equal(t, "-5,50", nfce.FormatBRL(decimal.RequireFromString("-5.5")))
}
