package nfce

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// QRCodeVersion versión del leiaute del QR Code (NT 2015.002 v2, emisión normal).
const QRCodeVersion = "2"

// QRCodeParams datos del QR Code de la NFC-e en emisión online.
type QRCodeParams struct {
	BaseURL   string // URL de consulta por QR de la UF
	AccessKey string
	TpAmb     string // 1 | 2
	CSCID     string // identificador del CSC (cIdToken)
	CSC       string
}

// BuildQRCode arma el contenido del QR:
// {url}?p={chave}|2|{tpAmb}|{cIdToken}|{SHA1(chave|2|tpAmb|cIdToken + CSC)}.
func BuildQRCode(p QRCodeParams) (string, error) {
	if err := ValidateAccessKey(p.AccessKey); err != nil {
		return "", err
	}
	if p.TpAmb != "1" && p.TpAmb != "2" {
		return "", fmt.Errorf("nfce: tpAmb inválido %q", p.TpAmb)
	}
	id := strings.TrimLeft(OnlyDigits(p.CSCID), "0")
	if id == "" {
		return "", fmt.Errorf("nfce: identificador del CSC requerido")
	}
	if p.CSC == "" {
		return "", fmt.Errorf("nfce: CSC requerido")
	}
	payload := strings.Join([]string{p.AccessKey, QRCodeVersion, p.TpAmb, id}, "|")
	sum := sha1.Sum([]byte(payload + p.CSC))
	sep := "?"
	if strings.Contains(p.BaseURL, "?") {
		sep = "&"
	}
	return p.BaseURL + sep + "p=" + payload + "|" + strings.ToUpper(hex.EncodeToString(sum[:])), nil
}
