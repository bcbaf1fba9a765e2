package fiscal

import (
	"context"
	"time"

	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
)

// AuthorizationResult respuesta de la SEFAZ a la autorización de una NFC-e.
// Authorized=false con CStat/Motivo es un rechazo definitivo de la autoridad.
type AuthorizationResult struct {
	Authorized bool
	CStat      string
	Motivo     string
	Protocol   string // nProt
	ReceivedAt time.Time
	VerAplic   string
}

// CancelResult respuesta al evento de cancelamento (tpEvento 110111).
type CancelResult struct {
	Accepted   bool
	CStat      string
	Motivo     string
	Protocol   string
	ReceivedAt time.Time
}

// Transmitter puerto hacia el web service de la autoridad fiscal.
// Fallas de red, timeouts y 5xx deben devolverse envueltas en domain.ErrExternalTransmission
// (son reintentables); cualquier otro error se considera permanente.
type Transmitter interface {
	Authorize(ctx context.Context, doc *entity.FiscalDocument, cfg *entity.FiscalConfig) (*AuthorizationResult, error)
	Cancel(ctx context.Context, doc *entity.FiscalDocument, cfg *entity.FiscalConfig, justificativa string) (*CancelResult, error)
}

// DocumentBuilder genera el XML de la NFC-e y el nfeProc autorizado.
type DocumentBuilder interface {
	BuildNFCe(doc *entity.FiscalDocument, cfg *entity.FiscalConfig) (string, error)
	BuildProc(doc *entity.FiscalDocument, res *AuthorizationResult) (string, error)
	// QRCode contenido del QR Code impreso en el DANFE.
	QRCode(doc *entity.FiscalDocument, cfg *entity.FiscalConfig) string
}

// PDFRenderer genera el DANFE NFC-e en PDF.
type PDFRenderer interface {
	RenderDANFE(doc *entity.FiscalDocument, cfg *entity.FiscalConfig, qrCode string) ([]byte, error)
}
