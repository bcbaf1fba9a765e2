package sefaz

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// ── Constantes SOAP ───────────────────────────────────────────────────────────

const (
	soap12NS     = "http://www.w3.org/2003/05/soap-envelope"
	wsdlAutoriza = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"
	wsdlEvento   = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4"
	versaoEvento = "1.00"
	maxResponse  = 1 << 20 // 1 MB
)

// SOAPTransmitter implementa fiscal.Transmitter contra los web services NFeAutorizacao4
// (modo síncrono) y NFeRecepcaoEvento4.
type SOAPTransmitter struct {
	httpClient   *http.Client
	authorizeURL string
	eventURL     string
	now          func() time.Time
}

var _ fiscal.Transmitter = (*SOAPTransmitter)(nil)

// NewSOAPTransmitter construye el cliente. El timeout por intento lo impone el ctx del caso de uso;
// el del http.Client es solo un tope.
func NewSOAPTransmitter(authorizeURL, eventURL string, httpClient *http.Client) *SOAPTransmitter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &SOAPTransmitter{
		httpClient:   httpClient,
		authorizeURL: authorizeURL,
		eventURL:     eventURL,
		now:          time.Now,
	}
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Result *nfeResultMsg `xml:"nfeResultMsg"`
	Fault  *soapFault    `xml:"Fault"`
}

type nfeResultMsg struct {
	RetEnviNFe   *retEnviNFe   `xml:"retEnviNFe"`
	RetEnvEvento *retEnvEvento `xml:"retEnvEvento"`
}

type retEnviNFe struct {
	CStat   string   `xml:"cStat"`
	XMotivo string   `xml:"xMotivo"`
	Prot    *infProt `xml:"protNFe>infProt"`
}

type infProt struct {
	VerAplic string `xml:"verAplic"`
	DhRecbto string `xml:"dhRecbto"`
	NProt    string `xml:"nProt"`
	CStat    string `xml:"cStat"`
	XMotivo  string `xml:"xMotivo"`
}

type retEnvEvento struct {
	CStat   string        `xml:"cStat"`
	XMotivo string        `xml:"xMotivo"`
	Evento  *retInfEvento `xml:"retEvento>infEvento"`
}

type retInfEvento struct {
	CStat       string `xml:"cStat"`
	XMotivo     string `xml:"xMotivo"`
	NProt       string `xml:"nProt"`
	DhRegEvento string `xml:"dhRegEvento"`
}

type soapFault struct {
	Code   string `xml:"Code>Value"`
	Reason string `xml:"Reason>Text"`
}

// ── Autorização ───────────────────────────────────────────────────────────────

// Authorize envía el lote síncrono (indSinc=1) con una única NFC-e.
func (c *SOAPTransmitter) Authorize(ctx context.Context, doc *entity.FiscalDocument, _ *entity.FiscalConfig) (*fiscal.AuthorizationResult, error) {
	src := etree.NewDocument()
	if err := src.ReadFromString(doc.XMLGenerated); err != nil || src.Root() == nil {
		return nil, fmt.Errorf("%w: XML de la NFC-e ilegible", domain.ErrValidation)
	}

	env, msg := envelope(wsdlAutoriza)
	lote := msg.CreateElement("enviNFe")
	lote.CreateAttr("xmlns", NsNFe)
	lote.CreateAttr("versao", VersaoNFe)
	text(lote, "idLote", c.loteID())
	text(lote, "indSinc", "1")
	lote.AddChild(src.Root().Copy())

	body, err := c.post(ctx, c.authorizeURL, wsdlAutoriza+"/nfeAutorizacaoLote", env)
	if err != nil {
		return nil, err
	}
	res, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	ret := res.RetEnviNFe
	if ret == nil {
		return nil, fmt.Errorf("%w: respuesta sin retEnviNFe", domain.ErrExternalTransmission)
	}
	// 104 = lote procesado; el resultado real está en protNFe.
	if ret.Prot == nil {
		if nfce.IsServiceUnavailable(ret.CStat) {
			return nil, fmt.Errorf("%w: cStat %s %s", domain.ErrExternalTransmission, ret.CStat, ret.XMotivo)
		}
		return &fiscal.AuthorizationResult{CStat: ret.CStat, Motivo: ret.XMotivo, ReceivedAt: c.now()}, nil
	}
	p := ret.Prot
	return &fiscal.AuthorizationResult{
		Authorized: p.CStat == nfce.CStatAutorizado,
		CStat:      p.CStat,
		Motivo:     p.XMotivo,
		Protocol:   p.NProt,
		ReceivedAt: c.parseTime(p.DhRecbto),
		VerAplic:   p.VerAplic,
	}, nil
}

// ── Evento de cancelamento ───────────────────────────────────────────────────

// Cancel envía el evento 110111 (nSeqEvento 1).
func (c *SOAPTransmitter) Cancel(ctx context.Context, doc *entity.FiscalDocument, cfg *entity.FiscalConfig, justificativa string) (*fiscal.CancelResult, error) {
	env, msg := envelope(wsdlEvento)
	lote := msg.CreateElement("envEvento")
	lote.CreateAttr("xmlns", NsNFe)
	lote.CreateAttr("versao", versaoEvento)
	text(lote, "idLote", c.loteID())

	ev := lote.CreateElement("evento")
	ev.CreateAttr("versao", versaoEvento)
	inf := ev.CreateElement("infEvento")
	inf.CreateAttr("Id", "ID"+nfce.TpEventoCancelamento+doc.AccessKey+"01")
	text(inf, "cOrgao", doc.AccessKey[:2])
	text(inf, "tpAmb", nfce.TpAmb(doc.Environment))
	text(inf, "CNPJ", nfce.OnlyDigits(cfg.CNPJ))
	text(inf, "chNFe", doc.AccessKey)
	text(inf, "dhEvento", FormatDateTime(c.now()))
	text(inf, "tpEvento", nfce.TpEventoCancelamento)
	text(inf, "nSeqEvento", "1")
	text(inf, "verEvento", versaoEvento)
	det := inf.CreateElement("detEvento")
	det.CreateAttr("versao", versaoEvento)
	text(det, "descEvento", nfce.DescEventoCancelamento)
	text(det, "nProt", doc.Protocol)
	text(det, "xJust", nfce.SanitizeText(justificativa, 255))

	body, err := c.post(ctx, c.eventURL, wsdlEvento+"/nfeRecepcaoEvento", env)
	if err != nil {
		return nil, err
	}
	res, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	ret := res.RetEnvEvento
	if ret == nil {
		return nil, fmt.Errorf("%w: respuesta sin retEnvEvento", domain.ErrExternalTransmission)
	}
	if ret.Evento == nil {
		if nfce.IsServiceUnavailable(ret.CStat) {
			return nil, fmt.Errorf("%w: cStat %s %s", domain.ErrExternalTransmission, ret.CStat, ret.XMotivo)
		}
		return &fiscal.CancelResult{CStat: ret.CStat, Motivo: ret.XMotivo, ReceivedAt: c.now()}, nil
	}
	e := ret.Evento
	return &fiscal.CancelResult{
		Accepted:   nfce.IsCancelRegistered(e.CStat),
		CStat:      e.CStat,
		Motivo:     e.XMotivo,
		Protocol:   e.NProt,
		ReceivedAt: c.parseTime(e.DhRegEvento),
	}, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

func envelope(wsdl string) (*etree.Document, *etree.Element) {
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := d.CreateElement("soap12:Envelope")
	env.CreateAttr("xmlns:soap12", soap12NS)
	body := env.CreateElement("soap12:Body")
	msg := body.CreateElement("nfeDadosMsg")
	msg.CreateAttr("xmlns", wsdl)
	return d, msg
}

// post envía el envelope. Red, timeout y 5xx son reintentables (ErrExternalTransmission).
func (c *SOAPTransmitter) post(ctx context.Context, url, action string, env *etree.Document) ([]byte, error) {
	payload, err := env.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="`+action+`"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrExternalTransmission, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrExternalTransmission, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrExternalTransmission, err)
	}
	if resp.StatusCode >= 500 {
		// SOAP Fault llega como 500; si trae Fault legible se interpreta en parseResponse.
		if f := parseFault(raw); f != nil {
			return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s", domain.ErrExternalTransmission, f.Code, f.Reason)
		}
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrExternalTransmission, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("soap: HTTP %d: %s", resp.StatusCode, truncateBody(raw))
	}
	return raw, nil
}

func parseResponse(raw []byte) (*nfeResultMsg, error) {
	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: respuesta SOAP ilegible: %v", domain.ErrExternalTransmission, err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s", domain.ErrExternalTransmission, f.Code, f.Reason)
	}
	if env.Body.Result == nil {
		return nil, fmt.Errorf("%w: respuesta SOAP vacía o inesperada", domain.ErrExternalTransmission)
	}
	return env.Body.Result, nil
}

func parseFault(raw []byte) *soapFault {
	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil
	}
	return env.Body.Fault
}

func (c *SOAPTransmitter) loteID() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

func (c *SOAPTransmitter) parseTime(s string) time.Time {
	if t, err := time.Parse(dateTimeFmt, s); err == nil {
		return t
	}
	return c.now()
}

func truncateBody(b []byte) string {
	if len(b) > 256 {
		return string(b[:256]) + "..."
	}
	return string(b)
}
