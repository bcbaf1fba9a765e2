package nfce

import (
	"fmt"
	"unicode"
)

// ValidateCNPJ valida los dos dígitos verificadores del CNPJ (con o sin máscara).
// cnpj puede ser "11.222.333/0001-81" o "11222333000181".
func ValidateCNPJ(cnpj string) error {
	d := extractDigits(cnpj)
	if len(d) != 14 {
		return fmt.Errorf("nfce: CNPJ debe tener 14 dígitos, se encontraron %d", len(d))
	}
	allSame := true
	for _, c := range d[1:] {
		if c != d[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("nfce: CNPJ inválido")
	}
	dv1 := mod11(string(d[:12]), 9)
	dv2 := mod11(string(d[:12])+string('0'+dv1), 9)
	if d[12] != '0'+dv1 || d[13] != '0'+dv2 {
		return fmt.Errorf("nfce: dígitos verificadores del CNPJ inválidos: esperado %c%c", '0'+dv1, '0'+dv2)
	}
	return nil
}

// OnlyDigits quita máscara de CNPJ, CEP, IE.
func OnlyDigits(s string) string {
	return string(extractDigits(s))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) && r < 128 {
			out = append(out, byte(r))
		}
	}
	return out
}

// FormatCNPJ aplica la máscara 00.000.000/0000-00; si no tiene 14 dígitos lo devuelve tal cual.
func FormatCNPJ(cnpj string) string {
	d := OnlyDigits(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}
