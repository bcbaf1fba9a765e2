package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/application/inventory"
	"github.com/jhoicas/pdv-nfce/internal/application/sales"
	"github.com/jhoicas/pdv-nfce/internal/interfaces/ws"
)

// RouterDeps dependencias para el router. Hub es opcional.
type RouterDeps struct {
	CompleteSale     *sales.CompleteSaleUseCase
	GetSale          *sales.GetSaleUseCase
	Stock            *inventory.StockUseCase
	RegisterMovement *inventory.RegisterMovementUseCase
	NFCe             *fiscal.NFCeUseCase
	Hub              *ws.Hub
	JWTSecret        string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	auth := AuthMiddleware(deps.JWTSecret)

	if deps.Hub != nil {
		app.Get("/ws", ws.Upgrade(), auth, deps.Hub.Handler(LocalBusinessID))
	}

	api := app.Group("/api", auth)

	saleHandler := NewSaleHandler(deps.CompleteSale, deps.GetSale, deps.NFCe)
	salesGroup := api.Group("/sales")
	salesGroup.Post("/", saleHandler.Create)
	salesGroup.Get("/:id", saleHandler.GetByID)
	salesGroup.Get("/:id/nfce", saleHandler.GetNFCe)

	// /low antes de /:productId
	stockHandler := NewStockHandler(deps.Stock, deps.RegisterMovement)
	stock := api.Group("/stock")
	stock.Get("/low", stockHandler.LowStock)
	stock.Post("/movements", stockHandler.RegisterMovement)
	stock.Get("/:productId", stockHandler.GetStock)
	stock.Get("/:productId/movements", stockHandler.ListMovements)

	nfceHandler := NewNFCeHandler(deps.NFCe)
	nfce := api.Group("/nfce")
	nfce.Post("/", nfceHandler.Generate)
	nfce.Get("/:id", nfceHandler.Get)
	nfce.Post("/:id/transmit", nfceHandler.Transmit)
	nfce.Post("/:id/cancel", nfceHandler.Cancel)
	nfce.Get("/:id/print", nfceHandler.Print)
	nfce.Get("/:id/pdf", nfceHandler.PDF)
	nfce.Get("/:id/xml", nfceHandler.XML)
}
