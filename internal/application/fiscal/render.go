package fiscal

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	domfiscal "github.com/jhoicas/pdv-nfce/internal/domain/fiscal"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// receiptWidth columnas de la impresora térmica (80 mm, fuente A).
const receiptWidth = 48

// Render devuelve el DANFE NFC-e en texto plano. Solo documentos autorizados.
func (uc *NFCeUseCase) Render(ctx context.Context, businessID, id string) (string, error) {
	doc, cfg, err := uc.printable(ctx, businessID, id)
	if err != nil {
		return "", err
	}
	return RenderReceipt(doc, cfg, uc.builder.QRCode(doc, cfg)), nil
}

// RenderPDF devuelve el DANFE NFC-e en PDF. Solo documentos autorizados.
func (uc *NFCeUseCase) RenderPDF(ctx context.Context, businessID, id string) ([]byte, error) {
	if uc.pdf == nil {
		return nil, fmt.Errorf("%w: generador de PDF no configurado", domain.ErrValidation)
	}
	doc, cfg, err := uc.printable(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	return uc.pdf.RenderDANFE(doc, cfg, uc.builder.QRCode(doc, cfg))
}

// AuthorizedXML devuelve el nfeProc (NFC-e + protocolo). Disponible para autorizada y cancelada.
func (uc *NFCeUseCase) AuthorizedXML(ctx context.Context, businessID, id string) (string, error) {
	doc, err := uc.docs.GetByID(ctx, businessID, id)
	if err != nil {
		return "", err
	}
	if doc.XMLAuthorized == "" || (doc.Status != entity.NFCeStatusAutorizada && doc.Status != entity.NFCeStatusCancelada) {
		return "", fmt.Errorf("%w: documento %s sin XML autorizado", domain.ErrInvalidState, doc.Status)
	}
	return doc.XMLAuthorized, nil
}

func (uc *NFCeUseCase) printable(ctx context.Context, businessID, id string) (*entity.FiscalDocument, *entity.FiscalConfig, error) {
	doc, err := uc.docs.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := domfiscal.CheckPrintable(doc.Status); err != nil {
		return nil, nil, err
	}
	cfg, err := uc.docs.GetConfig(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}
	return doc, cfg, nil
}

// RenderReceipt arma el DANFE NFC-e para impresora térmica.
func RenderReceipt(doc *entity.FiscalDocument, cfg *entity.FiscalConfig, qrCode string) string {
	var b strings.Builder
	sep := strings.Repeat("-", receiptWidth)
	line := func(s string) { b.WriteString(s); b.WriteByte('\n') }

	if cfg.NomeFantasia != "" {
		line(center(cfg.NomeFantasia))
	}
	line(center(cfg.RazaoSocial))
	line(center(fmt.Sprintf("CNPJ: %s  IE: %s", nfce.FormatCNPJ(cfg.CNPJ), cfg.IE)))
	line(center(fmt.Sprintf("%s, %s - %s", cfg.Logradouro, cfg.NumeroEnd, cfg.Bairro)))
	line(center(fmt.Sprintf("%s/%s", cfg.Municipio, cfg.UF)))
	line(sep)
	line(center("DANFE NFC-e - Documento Auxiliar"))
	line(center("da Nota Fiscal de Consumidor Eletrônica"))
	line(sep)
	line("#   CÓDIGO  DESCRIÇÃO")
	line(spread("    QTD UN x VL UNIT", "VL TOTAL"))
	for _, it := range doc.Items {
		line(truncate(fmt.Sprintf("%03d %s %s", it.Numero, it.Code, it.Description), receiptWidth))
		line(spread(fmt.Sprintf("    %d %s x %s", it.Quantity, it.Unit, nfce.FormatBRL(it.UnitPrice)), nfce.FormatBRL(it.Total)))
	}
	line(sep)
	qty := 0
	for _, it := range doc.Items {
		qty += it.Quantity
	}
	line(spread("QTD. TOTAL DE ITENS", fmt.Sprintf("%d", qty)))
	line(spread("VALOR TOTAL R$", nfce.FormatBRL(doc.Total)))
	line(spread("FORMA DE PAGAMENTO", "VALOR PAGO R$"))
	line(spread(nfce.PaymentLabel(doc.PaymentMethod), nfce.FormatBRL(doc.Total)))
	line(sep)
	line(center("Consulte pela Chave de Acesso em"))
	line(qrCode)
	// 11 grupos de 4 no caben en una línea: 6 + 5
	key := nfce.FormatAccessKey(doc.AccessKey)
	line(center(key[:29]))
	line(center(key[30:]))
	line(sep)
	line(center("CONSUMIDOR NÃO IDENTIFICADO"))
	line(center(fmt.Sprintf("NFC-e nº %09d Série %03d %s", doc.Numero, doc.Serie, doc.IssuedAt.Format("02/01/2006 15:04:05"))))
	line(center("Protocolo de autorização: " + doc.Protocol))
	if doc.AuthorizedAt != nil {
		line(center("Data de autorização: " + doc.AuthorizedAt.Format("02/01/2006 15:04:05")))
	}
	line(sep)
	line(center("Tributos Totais Incidentes (Lei 12.741/2012)"))
	line(spread("ICMS R$", nfce.FormatBRL(doc.ICMSTotal)))
	if doc.Environment == nfce.EnvHomologacao {
		line(sep)
		line(center("EMITIDA EM AMBIENTE DE HOMOLOGAÇÃO"))
		line(center("SEM VALOR FISCAL"))
	}
	return b.String()
}

func center(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= receiptWidth {
		return truncate(s, receiptWidth)
	}
	return strings.Repeat(" ", (receiptWidth-n)/2) + s
}

// spread alinea left a la izquierda y right a la derecha en el ancho del recibo.
func spread(left, right string) string {
	gap := receiptWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		left = truncate(left, receiptWidth-utf8.RuneCountInString(right)-1)
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
