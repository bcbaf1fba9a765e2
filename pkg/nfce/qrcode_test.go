package nfce_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pdv-nfce/pkg/nfce"
)

// ─── QR Code ─────────────────────────────────────────────────────────────────

const qrKey = "43261011222333000181650010000000421123456788"

func TestBuildQRCode_Formato(t *testing.T) {
	qr, err := nfce.BuildQRCode(nfce.QRCodeParams{
		BaseURL:   "https://www.sefaz.rs.gov.br/NFCE/NFCE-COM.aspx",
		AccessKey: qrKey,
		TpAmb:     "2",
		CSCID:     "000001",
		CSC:       "CSC-DE-TESTE",
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(qr, "https://www.sefaz.rs.gov.br/NFCE/NFCE-COM.aspx?p="+qrKey+"|2|2|1|"))
	parts := strings.Split(strings.SplitN(qr, "?p=", 2)[1], "|")
	require.Len(t, parts, 5)
	hash := parts[4]
	assert.Len(t, hash, 40)
	assert.Equal(t, strings.ToUpper(hash), hash)
}

func TestBuildQRCode_HashDependeDelCSC(t *testing.T) {
	p := nfce.QRCodeParams{BaseURL: "https://x/qr?x=1", AccessKey: qrKey, TpAmb: "1", CSCID: "2", CSC: "A"}
	a, err := nfce.BuildQRCode(p)
	require.NoError(t, err)
	again, err := nfce.BuildQRCode(p)
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Contains(t, a, "https://x/qr?x=1&p=")

	p.CSC = "B"
	b, err := nfce.BuildQRCode(p)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBuildQRCode_Invalido(t *testing.T) {
	base := nfce.QRCodeParams{BaseURL: "https://x", AccessKey: qrKey, TpAmb: "2", CSCID: "1", CSC: "c"}

	bad := base
	bad.AccessKey = qrKey[:43] + "0"
	_, err := nfce.BuildQRCode(bad)
	assert.Error(t, err)

	bad = base
	bad.TpAmb = "3"
	_, err = nfce.BuildQRCode(bad)
	assert.Error(t, err)

	bad = base
	bad.CSCID = "000"
	_, err = nfce.BuildQRCode(bad)
	assert.Error(t, err)

	bad = base
	bad.CSC = ""
	_, err = nfce.BuildQRCode(bad)
	assert.Error(t, err)
}
