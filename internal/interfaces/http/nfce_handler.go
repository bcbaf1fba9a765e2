package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pdv-nfce/internal/application/dto"
	"github.com/jhoicas/pdv-nfce/internal/application/fiscal"
)

// NFCeHandler ciclo de vida de la NFC-e.
type NFCeHandler struct {
	uc *fiscal.NFCeUseCase
}

func NewNFCeHandler(uc *fiscal.NFCeUseCase) *NFCeHandler {
	return &NFCeHandler{uc: uc}
}

// Generate godoc
// @Summary      Emitir NFC-e de una venta (queda pendente)
// @Tags         nfce
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.GenerateNFCeRequest  true  "Venta"
// @Success      201   {object}  dto.NFCeResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/nfce [post]
func (h *NFCeHandler) Generate(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	var in dto.GenerateNFCeRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if ok, err := validateBody(c, in); !ok {
		return err
	}
	out, err := h.uc.Generate(c.UserContext(), businessID, in.SaleID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get godoc
// @Summary      Obtener NFC-e
// @Tags         nfce
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la NFC-e"
// @Success      200  {object}  dto.NFCeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/nfce/{id} [get]
func (h *NFCeHandler) Get(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Get(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Transmit godoc
// @Summary      Transmitir NFC-e pendente a la SEFAZ
// @Description  Autorizada o rejeitada según la respuesta; una falla de comunicación la deja pendente (502).
// @Tags         nfce
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la NFC-e"
// @Success      200  {object}  dto.NFCeResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/nfce/{id}/transmit [post]
func (h *NFCeHandler) Transmit(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Transmit(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar NFC-e autorizada
// @Tags         nfce
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la NFC-e"
// @Param        body  body  dto.CancelNFCeRequest  true  "Justificativa (mínimo 15 caracteres)"
// @Success      200   {object}  dto.NFCeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/nfce/{id}/cancel [post]
func (h *NFCeHandler) Cancel(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	var in dto.CancelNFCeRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	// la longitud mínima la valida el caso de uso (JUSTIFICATION_TOO_SHORT)
	out, err := h.uc.Cancel(c.UserContext(), businessID, c.Params("id"), in.Justificativa)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Print godoc
// @Summary      Cupom DANFE NFC-e en texto (48 columnas)
// @Tags         nfce
// @Security     Bearer
// @Produce      plain
// @Param        id   path  string  true  "ID de la NFC-e"
// @Success      200  {string}  string
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/nfce/{id}/print [get]
func (h *NFCeHandler) Print(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Render(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(out)
}

// PDF godoc
// @Summary      DANFE NFC-e en PDF
// @Tags         nfce
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la NFC-e"
// @Success      200  {file}  binary
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/nfce/{id}/pdf [get]
func (h *NFCeHandler) PDF(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.RenderPDF(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=\"nfce-%s.pdf\"", c.Params("id")))
	return c.Send(out)
}

// XML godoc
// @Summary      nfeProc (NF-e + protocolo de autorización)
// @Tags         nfce
// @Security     Bearer
// @Produce      application/xml
// @Param        id   path  string  true  "ID de la NFC-e"
// @Success      200  {string}  string
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/nfce/{id}/xml [get]
func (h *NFCeHandler) XML(c *fiber.Ctx) error {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.AuthorizedXML(c.UserContext(), businessID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.SendString(out)
}
