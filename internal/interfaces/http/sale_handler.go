package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
	"github.com/jhoicas/pdv-nfce/internal/application/sales"
)

// SaleHandler checkout y consulta de ventas.
type SaleHandler struct {
	complete *sales.CompleteSaleUseCase
	get      *sales.GetSaleUseCase
	nfce     *fiscal.NFCeUseCase
}

func NewSaleHandler(complete *sales.CompleteSaleUseCase, get *sales.GetSaleUseCase, nfce *fiscal.NFCeUseCase) *SaleHandler {
	return &SaleHandler{complete: complete, get: get, nfce: nfce}
}

// Create godoc
// @Summary      Confirmar venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                   false  "Clave de idempotencia del cliente"
// @Param        body             body    dto.CompleteSaleRequest  true   "Carrito"
// @Success      201  {object}  dto.SaleResponse
// @Success      200  {object}  dto.SaleResponse  "Venta ya registrada con la misma clave"
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	var in dto.CompleteSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if ok, err := validateBody(c, in); !ok {
		return err
	}
	out, err := h.complete.CompleteSale(c.UserContext(), businessID, GetUserID(c), in, c.Get("Idempotency-Key"))
	if err != nil {
		return writeError(c, err)
	}
	if out.Replayed {
		return c.JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.get.GetSale(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetNFCe godoc
// @Summary      NFC-e de una venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.NFCeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/nfce [get]
func (h *SaleHandler) GetNFCe(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.nfce.GetBySale(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
