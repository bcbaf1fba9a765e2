package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
	"github.com/jhoicas/pdv-nfce/internal/infrastructure/memory"
)

const demoBusinessID = "demo"

// seedDemo catálogo y emisor de prueba para STORE_DRIVER=memory.
func seedDemo(st *memory.Store, env string) {
	now := time.Now()
	for _, p := range []entity.Product{
		{ID: "cafe-500", Name: "Café torrado 500g", Barcode: "7891000100103", Price: decimal.RequireFromString("18.90"), Cost: decimal.RequireFromString("11.20"), Stock: 40, MinStock: 10, Unit: "UN"},
		{ID: "pao-queijo", Name: "Pão de queijo 1kg", Barcode: "7896004000015", Price: decimal.RequireFromString("24.50"), Cost: decimal.RequireFromString("14.00"), Stock: 12, MinStock: 5, Unit: "UN"},
		{ID: "leite-1l", Name: "Leite integral 1L", Price: decimal.RequireFromString("5.49"), Cost: decimal.RequireFromString("3.60"), Stock: 60, MinStock: 24, Unit: "UN"},
		{ID: "banana-kg", Name: "Banana prata", Price: decimal.RequireFromString("6.99"), Cost: decimal.RequireFromString("3.10"), Stock: 25, Unit: "KG"},
	} {
		p.BusinessID, p.CreatedAt, p.UpdatedAt = demoBusinessID, now, now
		st.PutProduct(&p)
	}
	st.PutFiscalConfig(&entity.FiscalConfig{
		BusinessID:   demoBusinessID,
		CNPJ:         "11222333000181",
		RazaoSocial:  "Mercado Demonstração Ltda",
		NomeFantasia: "Mercadinho Demo",
		IE:           "0961234567",
		CRT:          "1",
		Logradouro:   "Rua dos Andradas",
		NumeroEnd:    "1000",
		Bairro:       "Centro Histórico",
		CodMunicipio: "4314902",
		Municipio:    "Porto Alegre",
		UF:           "RS",
		CEP:          "90020000",
		Serie:        1,
		NextNumber:   1,
		Environment:  env,
		CSCID:        "000001",
		CSC:          "0123456789ABCDEF0123456789ABCDEF",
		UpdatedAt:    now,
	})
}
