package nfce

import "fmt"

// =============================================================================
// Códigos IBGE de las UF (campo cUF de la chave e ide/cUF)
// =============================================================================

var ufCodes = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27",
	"SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// UFCode devuelve el código IBGE de 2 dígitos de la sigla de UF.
func UFCode(uf string) (string, error) {
	c, ok := ufCodes[uf]
	if !ok {
		return "", fmt.Errorf("nfce: UF desconocida %q", uf)
	}
	return c, nil
}

// =============================================================================
// Ambiente (tpAmb)
// =============================================================================

const (
	EnvProducao    = "producao"
	EnvHomologacao = "homologacao"
)

// TpAmb traduce el ambiente a tpAmb: 1 = produção, 2 = homologação.
func TpAmb(env string) string {
	if env == EnvProducao {
		return "1"
	}
	return "2"
}

// HomologacaoItemDescription texto obligatorio en xProd del primer ítem en homologação.
const HomologacaoItemDescription = "NOTA FISCAL EMITIDA EM AMBIENTE DE HOMOLOGACAO - SEM VALOR FISCAL"

// =============================================================================
// Formas de pagamento (tPag)
// =============================================================================

const (
	TPagDinheiro = "01"
	TPagCredito  = "03"
	TPagDebito   = "04"
	TPagPix      = "17"
	TPagOutros   = "99"
)

var paymentCodes = map[string]string{
	"dinheiro": TPagDinheiro,
	"credito":  TPagCredito,
	"debito":   TPagDebito,
	"pix":      TPagPix,
	"outros":   TPagOutros,
}

var paymentLabels = map[string]string{
	"dinheiro": "Dinheiro",
	"credito":  "Cartão de Crédito",
	"debito":   "Cartão de Débito",
	"pix":      "PIX",
	"outros":   "Outros",
}

// PaymentCode devuelve tPag para el método de pago del PDV; desconocido => 99.
func PaymentCode(method string) string {
	if c, ok := paymentCodes[method]; ok {
		return c
	}
	return TPagOutros
}

// PaymentLabel texto impreso en el DANFE.
func PaymentLabel(method string) string {
	if l, ok := paymentLabels[method]; ok {
		return l
	}
	return paymentLabels["outros"]
}

// IsPaymentMethod indica si el método pertenece al catálogo del PDV.
func IsPaymentMethod(method string) bool {
	_, ok := paymentCodes[method]
	return ok
}

// =============================================================================
// Retorno SEFAZ (cStat) de uso frecuente
// =============================================================================

const (
	CStatAutorizado        = "100" // Autorizado o uso da NF-e
	CStatLoteRecebido      = "103" // Lote recebido com sucesso
	CStatLoteEmProcesso    = "105" // Lote em processamento
	CStatParalisadoMomento = "108" // Serviço Paralisado Momentaneamente
	CStatParalisadoSemPrev = "109" // Serviço Paralisado sem Previsão
	CStatEventoRegistrado  = "135" // Evento registrado e vinculado a NF-e
	CStatEventoSemVinculo  = "136" // Evento registrado, mas não vinculado a NF-e
	CStatCancelForaPrazo   = "155" // Cancelamento homologado fora de prazo
	CStatRejeicaoChave     = "236" // Rejeição: Chave de Acesso com dígito verificador inválido
	CStatRejeicaoTotal     = "531" // Rejeição: Total da BC ICMS difere do somatório dos itens
	CStatRejeicaoCNPJ      = "207" // Rejeição: CNPJ do emitente inválido
	CStatRejeicaoSchema    = "225" // Rejeição: Falha no Schema XML

	TpEventoCancelamento   = "110111"
	DescEventoCancelamento = "Cancelamento"
)

// IsServiceUnavailable cStat que no juzga el documento: servicio paralizado o lote todavía
// sin resultado. La NFC-e sigue pendiente y se reintenta.
func IsServiceUnavailable(cStat string) bool {
	switch cStat {
	case CStatLoteRecebido, CStatLoteEmProcesso, CStatParalisadoMomento, CStatParalisadoSemPrev:
		return true
	}
	return false
}

// IsCancelRegistered cStat con que la SEFAZ homologa el evento de cancelamento.
func IsCancelRegistered(cStat string) bool {
	switch cStat {
	case CStatEventoRegistrado, CStatEventoSemVinculo, CStatCancelForaPrazo:
		return true
	}
	return false
}
