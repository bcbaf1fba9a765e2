package sefaz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// MockTransmitter simula el web service de la SEFAZ: autoriza documentos estructuralmente
// válidos y rechaza el resto con el cStat correspondiente. Útil en desarrollo y tests.
type MockTransmitter struct {
	mu       sync.Mutex
	seq      int64
	failNext int
	calls    int
	now      func() time.Time
	verAplic string
}

var _ fiscal.Transmitter = (*MockTransmitter)(nil)

func NewMockTransmitter() *MockTransmitter {
	return &MockTransmitter{now: time.Now, verAplic: "MOCK-4.00"}
}

// FailNext hace que las próximas n llamadas fallen como error de comunicación.
func (m *MockTransmitter) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Calls número de llamadas recibidas (incluidas las fallidas).
func (m *MockTransmitter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Authorize valida chave, CNPJ y totales; en homologação y producción responde igual.
func (m *MockTransmitter) Authorize(ctx context.Context, doc *entity.FiscalDocument, cfg *entity.FiscalConfig) (*fiscal.AuthorizationResult, error) {
	protocol, err := m.call(ctx, doc.AccessKey)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if cStat, motivo := validate(doc, cfg); cStat != "" {
		return &fiscal.AuthorizationResult{CStat: cStat, Motivo: motivo, ReceivedAt: now, VerAplic: m.verAplic}, nil
	}
	return &fiscal.AuthorizationResult{
		Authorized: true,
		CStat:      nfce.CStatAutorizado,
		Motivo:     "Autorizado o uso da NF-e",
		Protocol:   protocol,
		ReceivedAt: now,
		VerAplic:   m.verAplic,
	}, nil
}

// Cancel registra el evento 110111 si el documento tiene protocolo de autorización.
func (m *MockTransmitter) Cancel(ctx context.Context, doc *entity.FiscalDocument, _ *entity.FiscalConfig, justificativa string) (*fiscal.CancelResult, error) {
	protocol, err := m.call(ctx, doc.AccessKey)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if doc.Protocol == "" {
		return &fiscal.CancelResult{CStat: "217", Motivo: "Rejeição: NF-e não consta na base de dados da SEFAZ", ReceivedAt: now}, nil
	}
	if len([]rune(justificativa)) < 15 {
		return &fiscal.CancelResult{CStat: nfce.CStatRejeicaoSchema, Motivo: "Rejeição: Falha no Schema XML (xJust)", ReceivedAt: now}, nil
	}
	return &fiscal.CancelResult{
		Accepted:   true,
		CStat:      nfce.CStatEventoRegistrado,
		Motivo:     "Evento registrado e vinculado a NF-e",
		Protocol:   protocol,
		ReceivedAt: now,
	}, nil
}

func (m *MockTransmitter) call(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExternalTransmission, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failNext > 0 {
		m.failNext--
		return "", fmt.Errorf("%w: SEFAZ indisponível (simulado)", domain.ErrExternalTransmission)
	}
	m.seq++
	cuf := "00"
	if len(key) >= 2 {
		cuf = key[:2]
	}
	// nProt: tipo(1) + cUF(2) + AA(2) + secuencial(10)
	return fmt.Sprintf("1%s%s%010d", cuf, m.now().Format("06"), m.seq), nil
}

func validate(doc *entity.FiscalDocument, cfg *entity.FiscalConfig) (cStat, motivo string) {
	if len(doc.Items) == 0 || doc.XMLGenerated == "" {
		return nfce.CStatRejeicaoSchema, "Rejeição: Falha no Schema XML"
	}
	if err := nfce.ValidateAccessKey(doc.AccessKey); err != nil {
		return nfce.CStatRejeicaoChave, "Rejeição: Chave de Acesso com dígito verificador inválido"
	}
	if err := nfce.ValidateCNPJ(cfg.CNPJ); err != nil || doc.AccessKey[6:20] != nfce.OnlyDigits(cfg.CNPJ) {
		return nfce.CStatRejeicaoCNPJ, "Rejeição: CNPJ do emitente inválido"
	}
	sum := decimal.Zero
	for _, it := range doc.Items {
		sum = sum.Add(it.Total)
	}
	if !sum.Equal(doc.Total) {
		return nfce.CStatRejeicaoTotal, "Rejeição: Total do documento difere do somatório dos itens"
	}
	return "", ""
}
