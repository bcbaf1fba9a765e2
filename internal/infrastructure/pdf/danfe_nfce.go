// Package pdf genera el DANFE NFC-e (Documento Auxiliar da Nota Fiscal de Consumidor
// Eletrônica) en PDF para bobina de 80 mm.
//
// Layout:
//
//	┌──────────────────────────────┐
//	│  Emitente: razão social/CNPJ │
//	│  DANFE NFC-e                 │
//	│  Itens: cód | desc | qtd | $ │
//	│  Totais + forma de pagamento │
//	│  Consulta por chave + QR     │
//	│  Protocolo de autorização    │
//	└──────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// ── Paleta ────────────────────────────────────────────────────────────────────

var (
	colorGray = &props.Color{Red: 90, Green: 90, Blue: 90}
	colorRed  = &props.Color{Red: 170, Green: 0, Blue: 0}
)

const (
	rollWidth  = 80.0 // mm
	pageHeight = 297.0
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// DANFERenderer implementa fiscal.PDFRenderer con Maroto v2.
type DANFERenderer struct{}

var _ fiscal.PDFRenderer = (*DANFERenderer)(nil)

func NewDANFERenderer() *DANFERenderer { return &DANFERenderer{} }

// RenderDANFE genera el PDF y devuelve sus bytes.
func (r *DANFERenderer) RenderDANFE(doc *entity.FiscalDocument, cfg *entity.FiscalConfig, qrCode string) ([]byte, error) {
	if doc == nil || cfg == nil {
		return nil, fmt.Errorf("pdf: faltan documento o configuración fiscal")
	}
	mcfg := config.NewBuilder().
		WithDimensions(rollWidth, pageHeight).
		WithLeftMargin(3).WithRightMargin(3).
		WithTopMargin(3).WithBottomMargin(3).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 7}).
		WithTitle("DANFE NFC-e "+strconv.FormatInt(doc.Numero, 10), true).
		WithAuthor(cfg.RazaoSocial, true).
		Build()

	m := maroto.New(mcfg)

	m.AddRows(emitenteRows(cfg)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(centered("DANFE NFC-e - Documento Auxiliar da Nota Fiscal de Consumidor Eletrônica", 8, fontstyle.Bold))
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))

	m.AddRows(itemsHeaderRow())
	m.AddRows(itemRows(doc.Items)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))

	m.AddRows(totalsRows(doc)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))

	m.AddRows(consultaRows(doc, qrCode)...)
	if doc.Environment == nfce.EnvHomologacao {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("EMITIDA EM AMBIENTE DE HOMOLOGAÇÃO - SEM VALOR FISCAL", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Center, Color: colorRed, Top: 2,
			}),
		)))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar DANFE: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func emitenteRows(cfg *entity.FiscalConfig) []core.Row {
	name := cfg.RazaoSocial
	if cfg.NomeFantasia != "" {
		name = cfg.NomeFantasia
	}
	return []core.Row{
		centered(name, 10, fontstyle.Bold),
		centered(cfg.RazaoSocial, 7, fontstyle.Normal),
		centered(fmt.Sprintf("CNPJ: %s   IE: %s", nfce.FormatCNPJ(cfg.CNPJ), cfg.IE), 7, fontstyle.Normal),
		centered(fmt.Sprintf("%s, %s - %s - %s/%s", cfg.Logradouro, cfg.NumeroEnd, cfg.Bairro, cfg.Municipio, cfg.UF), 6.5, fontstyle.Normal),
	}
}

func itemsHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 6.5, Align: a, Top: 1}))
	}
	return row.New(5).Add(
		h("Código", 2, align.Left),
		h("Descrição", 4, align.Left),
		h("Qtd UN", 2, align.Center),
		h("Vl Unit", 2, align.Right),
		h("Vl Total", 2, align.Right),
	)
}

func itemRows(items []entity.FiscalItem) []core.Row {
	out := make([]core.Row, 0, len(items))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 6.5, Align: a, Top: 0.5}))
	}
	for _, it := range items {
		out = append(out, row.New(5).Add(
			cell(it.Code, 2, align.Left),
			cell(it.Description, 4, align.Left),
			cell(fmt.Sprintf("%d %s", it.Quantity, it.Unit), 2, align.Center),
			cell(nfce.FormatBRL(it.UnitPrice), 2, align.Right),
			cell(nfce.FormatBRL(it.Total), 2, align.Right),
		))
	}
	return out
}

func totalsRows(doc *entity.FiscalDocument) []core.Row {
	qty := 0
	for _, it := range doc.Items {
		qty += it.Quantity
	}
	kv := func(k, v string, style fontstyle.Type) core.Row {
		return row.New(5).Add(
			col.New(8).Add(text.New(k, props.Text{Size: 7, Style: style, Top: 0.5})),
			col.New(4).Add(text.New(v, props.Text{Size: 7, Style: style, Align: align.Right, Top: 0.5})),
		)
	}
	return []core.Row{
		kv("Qtd. total de itens", strconv.Itoa(qty), fontstyle.Normal),
		kv("Valor total R$", nfce.FormatBRL(doc.Total), fontstyle.Bold),
		kv("Forma de pagamento", "Valor pago R$", fontstyle.Bold),
		kv(nfce.PaymentLabel(doc.PaymentMethod), nfce.FormatBRL(doc.Total), fontstyle.Normal),
		kv("Tributos totais incidentes (ICMS) R$", nfce.FormatBRL(doc.ICMSTotal), fontstyle.Normal),
	}
}

func consultaRows(doc *entity.FiscalDocument, qrCode string) []core.Row {
	rows := []core.Row{
		centered("Consulte pela Chave de Acesso em", 7, fontstyle.Bold),
	}
	for _, chunk := range splitEvery(nfce.FormatAccessKey(doc.AccessKey), 30) {
		rows = append(rows, centered(chunk, 7, fontstyle.Normal))
	}
	rows = append(rows,
		centered("CONSUMIDOR NÃO IDENTIFICADO", 7, fontstyle.Bold),
		centered(fmt.Sprintf("NFC-e nº %09d  Série %03d  %s", doc.Numero, doc.Serie, doc.IssuedAt.Format("02/01/2006 15:04:05")), 7, fontstyle.Normal),
	)
	if doc.Protocol != "" {
		auth := ""
		if doc.AuthorizedAt != nil {
			auth = doc.AuthorizedAt.Format("02/01/2006 15:04:05")
		}
		rows = append(rows, centered("Protocolo de autorização: "+doc.Protocol+"  "+auth, 6.5, fontstyle.Normal))
	}
	if qrCode != "" {
		rows = append(rows, row.New(45).Add(
			col.New(2),
			col.New(8).Add(code.NewQr(qrCode, props.Rect{Percent: 95, Center: true})),
			col.New(2),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func centered(s string, size float64, style fontstyle.Type) core.Row {
	return row.New(size*0.6+1.5).Add(col.New(12).Add(
		text.New(s, props.Text{Size: size, Style: style, Align: align.Center, Top: 0.5}),
	))
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
