// Package nfce contiene el cálculo de la chave de acesso, catálogos y validaciones
// del leiaute NF-e/NFC-e 4.00 (modelo 65) usados por el motor fiscal.
package nfce

import (
	"fmt"
	"time"
)

const (
	// KeyLength longitud de la chave de acesso (43 dígitos + DV).
	KeyLength = 44
	// Modelo NFC-e.
	Modelo = "65"
	// TpEmisNormal emisión normal (tpEmis=1).
	TpEmisNormal = 1
)

// KeyParams campos que componen la chave de acesso, en el orden del leiaute.
type KeyParams struct {
	CUF            string    // código IBGE de la UF (2 dígitos)
	EmissionDate   time.Time // se usa AAMM
	CNPJ           string    // solo dígitos, 14
	Serie          int       // 0..999
	Numero         int64     // 1..999999999
	TpEmis         int       // 1..9
	CodigoNumerico string    // cNF, 8 dígitos
}

// BuildAccessKey arma la chave de 44 dígitos:
// {cUF:2}{AAMM:4}{CNPJ:14}{mod:2}{serie:3}{nNF:9}{tpEmis:1}{cNF:8}{cDV:1}.
func BuildAccessKey(p KeyParams) (string, error) {
	cnpj := string(extractDigits(p.CNPJ))
	switch {
	case len(p.CUF) != 2 || !allDigits(p.CUF):
		return "", fmt.Errorf("nfce: cUF inválido %q", p.CUF)
	case len(cnpj) != 14:
		return "", fmt.Errorf("nfce: CNPJ debe tener 14 dígitos, se encontraron %d", len(cnpj))
	case p.Serie < 0 || p.Serie > 999:
		return "", fmt.Errorf("nfce: serie fuera de rango: %d", p.Serie)
	case p.Numero < 1 || p.Numero > 999999999:
		return "", fmt.Errorf("nfce: número fuera de rango: %d", p.Numero)
	case p.TpEmis < 1 || p.TpEmis > 9:
		return "", fmt.Errorf("nfce: tpEmis inválido: %d", p.TpEmis)
	case len(p.CodigoNumerico) != 8 || !allDigits(p.CodigoNumerico):
		return "", fmt.Errorf("nfce: cNF debe tener 8 dígitos")
	case p.EmissionDate.IsZero():
		return "", fmt.Errorf("nfce: fecha de emisión vacía")
	}

	pre := fmt.Sprintf("%s%s%s%s%03d%09d%d%s",
		p.CUF,
		p.EmissionDate.Format("0601"),
		cnpj,
		Modelo,
		p.Serie,
		p.Numero,
		p.TpEmis,
		p.CodigoNumerico,
	)
	dv, err := CheckDigit(pre)
	if err != nil {
		return "", err
	}
	return pre + string('0'+dv), nil
}

// CheckDigit calcula el DV módulo 11 de los 43 dígitos iniciales.
// Pesos 2..9 cíclicos desde el dígito más a la derecha; resto < 2 => 0, si no 11 - resto.
func CheckDigit(digits43 string) (byte, error) {
	if len(digits43) != KeyLength-1 || !allDigits(digits43) {
		return 0, fmt.Errorf("nfce: se esperaban %d dígitos, se recibió %q", KeyLength-1, digits43)
	}
	return mod11(digits43, 9), nil
}

// ValidateAccessKey verifica longitud, modelo y DV de una chave completa.
func ValidateAccessKey(key string) error {
	if len(key) != KeyLength || !allDigits(key) {
		return fmt.Errorf("nfce: la chave debe tener %d dígitos", KeyLength)
	}
	if key[20:22] != Modelo {
		return fmt.Errorf("nfce: modelo %s no es NFC-e", key[20:22])
	}
	dv, _ := CheckDigit(key[:KeyLength-1])
	if key[KeyLength-1] != '0'+dv {
		return fmt.Errorf("nfce: DV inválido: esperado %c, recibido %c", '0'+dv, key[KeyLength-1])
	}
	return nil
}

// mod11 pondera de derecha a izquierda con pesos 2..maxWeight.
func mod11(digits string, maxWeight int) byte {
	sum, w := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * w
		w++
		if w > maxWeight {
			w = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return byte(11 - r)
}

// FormatAccessKey agrupa la chave en bloques de 4 dígitos (como se imprime en el DANFE).
func FormatAccessKey(key string) string {
	out := make([]byte, 0, len(key)+len(key)/4)
	for i := 0; i < len(key); i++ {
		if i > 0 && i%4 == 0 {
			out = append(out, ' ')
		}
		out = append(out, key[i])
	}
	return string(out)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
