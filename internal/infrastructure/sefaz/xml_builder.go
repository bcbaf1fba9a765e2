// Package sefaz implementa la generación del XML de la NFC-e (leiaute 4.00, modelo 65) y los
// clientes del web service de autorización de la SEFAZ.
package sefaz

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

const (
	NsNFe       = "http://www.portalfiscal.inf.br/nfe"
	VersaoNFe   = "4.00"
	VerProc     = "pdv-nfce 1.0"
	dateTimeFmt = "2006-01-02T15:04:05-07:00"
)

// XMLBuilder implementa fiscal.DocumentBuilder sobre etree (sin firma XMLDSig).
type XMLBuilder struct {
	qrCodeURL   string
	consultaURL string
}

var _ fiscal.DocumentBuilder = (*XMLBuilder)(nil)

// NewXMLBuilder crea el builder. consultaURL vacío usa la misma URL del QR Code.
func NewXMLBuilder(qrCodeURL, consultaURL string) *XMLBuilder {
	if consultaURL == "" {
		consultaURL = qrCodeURL
	}
	return &XMLBuilder{qrCodeURL: qrCodeURL, consultaURL: consultaURL}
}

// BuildNFCe genera el XML <NFe> con infNFe e infNFeSupl (QR Code).
func (b *XMLBuilder) BuildNFCe(doc *entity.FiscalDocument, cfg *entity.FiscalConfig) (string, error) {
	if doc == nil || cfg == nil {
		return "", fmt.Errorf("%w: faltan documento o configuración fiscal", domain.ErrValidation)
	}
	if len(doc.Items) == 0 {
		return "", fmt.Errorf("%w: NFC-e sin ítems", domain.ErrValidation)
	}
	if err := nfce.ValidateAccessKey(doc.AccessKey); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	cuf, err := nfce.UFCode(cfg.UF)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	qr, err := b.qrCode(doc, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	nfe := x.CreateElement("NFe")
	nfe.CreateAttr("xmlns", NsNFe)

	inf := nfe.CreateElement("infNFe")
	inf.CreateAttr("versao", VersaoNFe)
	inf.CreateAttr("Id", "NFe"+doc.AccessKey)

	writeIde(inf, doc, cfg, cuf)
	writeEmit(inf, cfg)

	vProd := decimal.Zero
	vBC := decimal.Zero
	for i, it := range doc.Items {
		writeDet(inf, i, it, doc.Environment)
		vProd = vProd.Add(it.Total)
		vBC = vBC.Add(it.ICMSBase)
	}
	writeTotal(inf, vProd, vBC, doc.ICMSTotal, doc.Total)

	inf.CreateElement("transp").CreateElement("modFrete").SetText("9") // sin frete

	detPag := inf.CreateElement("pag").CreateElement("detPag")
	detPag.CreateElement("tPag").SetText(nfce.PaymentCode(doc.PaymentMethod))
	detPag.CreateElement("vPag").SetText(money(doc.Total))

	if doc.Observations != "" {
		inf.CreateElement("infAdic").CreateElement("infCpl").SetText(nfce.SanitizeText(doc.Observations, 5000))
	}

	supl := nfe.CreateElement("infNFeSupl")
	supl.CreateElement("qrCode").SetText(qr)
	supl.CreateElement("urlChave").SetText(b.consultaURL)

	out, err := x.WriteToString()
	if err != nil {
		return "", fmt.Errorf("sefaz: serializar NFC-e: %w", err)
	}
	return out, nil
}

func writeIde(inf *etree.Element, doc *entity.FiscalDocument, cfg *entity.FiscalConfig, cuf string) {
	ide := inf.CreateElement("ide")
	text(ide, "cUF", cuf)
	text(ide, "cNF", doc.CodigoNumerico)
	text(ide, "natOp", "VENDA")
	text(ide, "mod", nfce.Modelo)
	text(ide, "serie", strconv.Itoa(doc.Serie))
	text(ide, "nNF", strconv.FormatInt(doc.Numero, 10))
	text(ide, "dhEmi", doc.IssuedAt.Format(dateTimeFmt))
	text(ide, "tpNF", "1")
	text(ide, "idDest", "1")
	text(ide, "cMunFG", cfg.CodMunicipio)
	text(ide, "tpImp", "4") // DANFE NFC-e
	text(ide, "tpEmis", strconv.Itoa(nfce.TpEmisNormal))
	text(ide, "cDV", doc.AccessKey[nfce.KeyLength-1:])
	text(ide, "tpAmb", nfce.TpAmb(doc.Environment))
	text(ide, "finNFe", "1")
	text(ide, "indFinal", "1")
	text(ide, "indPres", "1")
	text(ide, "procEmi", "0")
	text(ide, "verProc", VerProc)
}

func writeEmit(inf *etree.Element, cfg *entity.FiscalConfig) {
	emit := inf.CreateElement("emit")
	text(emit, "CNPJ", nfce.OnlyDigits(cfg.CNPJ))
	text(emit, "xNome", nfce.SanitizeText(cfg.RazaoSocial, 60))
	if cfg.NomeFantasia != "" {
		text(emit, "xFant", nfce.SanitizeText(cfg.NomeFantasia, 60))
	}
	end := emit.CreateElement("enderEmit")
	text(end, "xLgr", nfce.SanitizeText(cfg.Logradouro, 60))
	text(end, "nro", nfce.SanitizeText(cfg.NumeroEnd, 60))
	text(end, "xBairro", nfce.SanitizeText(cfg.Bairro, 60))
	text(end, "cMun", cfg.CodMunicipio)
	text(end, "xMun", nfce.SanitizeText(cfg.Municipio, 60))
	text(end, "UF", cfg.UF)
	text(end, "CEP", nfce.OnlyDigits(cfg.CEP))
	text(end, "cPais", "1058")
	text(end, "xPais", "BRASIL")
	text(emit, "IE", nfce.OnlyDigits(cfg.IE))
	text(emit, "CRT", cfg.CRT)
}

func writeDet(inf *etree.Element, i int, it entity.FiscalItem, env string) {
	det := inf.CreateElement("det")
	det.CreateAttr("nItem", strconv.Itoa(it.Numero))

	desc := nfce.SanitizeText(it.Description, 120)
	if i == 0 && env == nfce.EnvHomologacao {
		desc = nfce.HomologacaoItemDescription
	}
	ean := it.Barcode
	if ean == "" {
		ean = "SEM GTIN"
	}
	qty := decimal.NewFromInt(int64(it.Quantity)).StringFixed(4)

	prod := det.CreateElement("prod")
	text(prod, "cProd", it.Code)
	text(prod, "cEAN", ean)
	text(prod, "xProd", desc)
	text(prod, "NCM", it.NCM)
	text(prod, "CFOP", it.CFOP)
	text(prod, "uCom", it.Unit)
	text(prod, "qCom", qty)
	text(prod, "vUnCom", it.UnitPrice.StringFixed(4))
	text(prod, "vProd", money(it.Total))
	text(prod, "cEANTrib", ean)
	text(prod, "uTrib", it.Unit)
	text(prod, "qTrib", qty)
	text(prod, "vUnTrib", it.UnitPrice.StringFixed(4))
	text(prod, "indTot", "1")

	imposto := det.CreateElement("imposto")
	icms := imposto.CreateElement("ICMS")
	if it.CST == "00" {
		g := icms.CreateElement("ICMS00")
		text(g, "orig", "0")
		text(g, "CST", it.CST)
		text(g, "modBC", "3")
		text(g, "vBC", money(it.ICMSBase))
		text(g, "pICMS", it.ICMSRate.StringFixed(2))
		text(g, "vICMS", money(it.ICMSValue))
	} else {
		g := icms.CreateElement("ICMS40")
		text(g, "orig", "0")
		text(g, "CST", it.CST)
	}
	text(imposto.CreateElement("PIS").CreateElement("PISNT"), "CST", "07")
	text(imposto.CreateElement("COFINS").CreateElement("COFINSNT"), "CST", "07")
}

func writeTotal(inf *etree.Element, vProd, vBC, vICMS, vNF decimal.Decimal) {
	tot := inf.CreateElement("total").CreateElement("ICMSTot")
	zero := money(decimal.Zero)
	text(tot, "vBC", money(vBC))
	text(tot, "vICMS", money(vICMS))
	for _, tag := range []string{"vICMSDeson", "vFCP", "vBCST", "vST", "vFCPST", "vFCPSTRet"} {
		text(tot, tag, zero)
	}
	text(tot, "vProd", money(vProd))
	for _, tag := range []string{"vFrete", "vSeg", "vDesc", "vII", "vIPI", "vIPIDevol", "vPIS", "vCOFINS", "vOutro"} {
		text(tot, tag, zero)
	}
	text(tot, "vNF", money(vNF))
}

// BuildProc envuelve la NFC-e autorizada con su protocolo (nfeProc).
// digVal es el SHA-1 en Base64 de la forma canónica del <NFe>.
func (b *XMLBuilder) BuildProc(doc *entity.FiscalDocument, res *fiscal.AuthorizationResult) (string, error) {
	if res == nil || !res.Authorized {
		return "", fmt.Errorf("%w: nfeProc requiere autorización", domain.ErrInvalidState)
	}
	src := etree.NewDocument()
	if err := src.ReadFromString(doc.XMLGenerated); err != nil {
		return "", fmt.Errorf("sefaz: parsear NFC-e: %w", err)
	}
	nfeEl := src.Root()
	if nfeEl == nil || nfeEl.Tag != "NFe" {
		return "", fmt.Errorf("sefaz: XML sin elemento NFe")
	}
	digVal, err := digestValue(nfeEl)
	if err != nil {
		return "", err
	}

	received := res.ReceivedAt
	if received.IsZero() && doc.AuthorizedAt != nil {
		received = *doc.AuthorizedAt
	}

	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	proc := out.CreateElement("nfeProc")
	proc.CreateAttr("xmlns", NsNFe)
	proc.CreateAttr("versao", VersaoNFe)
	proc.AddChild(nfeEl.Copy())

	prot := proc.CreateElement("protNFe")
	prot.CreateAttr("versao", VersaoNFe)
	inf := prot.CreateElement("infProt")
	text(inf, "tpAmb", nfce.TpAmb(doc.Environment))
	text(inf, "verAplic", res.VerAplic)
	text(inf, "chNFe", doc.AccessKey)
	text(inf, "dhRecbto", received.Format(dateTimeFmt))
	text(inf, "nProt", res.Protocol)
	text(inf, "digVal", digVal)
	text(inf, "cStat", res.CStat)
	text(inf, "xMotivo", res.Motivo)

	s, err := out.WriteToString()
	if err != nil {
		return "", fmt.Errorf("sefaz: serializar nfeProc: %w", err)
	}
	return s, nil
}

// QRCode contenido del QR Code; sin CSC configurado devuelve la URL de consulta por chave.
func (b *XMLBuilder) QRCode(doc *entity.FiscalDocument, cfg *entity.FiscalConfig) string {
	qr, err := b.qrCode(doc, cfg)
	if err != nil {
		return b.consultaURL + "?chNFe=" + doc.AccessKey
	}
	return qr
}

func (b *XMLBuilder) qrCode(doc *entity.FiscalDocument, cfg *entity.FiscalConfig) (string, error) {
	return nfce.BuildQRCode(nfce.QRCodeParams{
		BaseURL:   b.qrCodeURL,
		AccessKey: doc.AccessKey,
		TpAmb:     nfce.TpAmb(doc.Environment),
		CSCID:     cfg.CSCID,
		CSC:       cfg.CSC,
	})
}

func digestValue(el *etree.Element) (string, error) {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	raw, err := d.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("sefaz: serializar NFe: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("sefaz: canonicalizar NFe: %w", err)
	}
	sum := sha1.Sum(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func text(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func money(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// FormatDateTime fecha con offset en el formato de los campos dh* del leiaute.
func FormatDateTime(t time.Time) string { return t.Format(dateTimeFmt) }
