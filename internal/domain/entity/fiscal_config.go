package entity

import "time"

// FiscalConfig datos del emisor y numeración de NFC-e de un negocio.
// NextNumber es el próximo nNF a asignar; solo se incrementa dentro de la transacción de emisión.
type FiscalConfig struct {
	BusinessID   string
	CNPJ         string
	RazaoSocial  string
	NomeFantasia string
	IE           string // inscrição estadual
	CRT          string // 1 Simples Nacional, 3 regime normal
	Logradouro   string
	NumeroEnd    string
	Bairro       string
	CodMunicipio string // IBGE, 7 dígitos
	Municipio    string
	UF           string
	CEP          string
	Serie        int
	NextNumber   int64
	Environment  string // homologacao, producao
	CSCID        string // identificador del CSC para el QR Code
	CSC          string
	UpdatedAt    time.Time
}
