package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrValidation            = errors.New("entrada inválida")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrTransactionFailed     = errors.New("la transacción no pudo completarse")
	ErrInvalidState          = errors.New("transición de estado no permitida")
	ErrAlreadyTransmitted    = errors.New("documento fiscal ya transmitido")
	ErrExternalTransmission  = errors.New("falla de comunicación con la autoridad fiscal")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrJustificationTooShort = &wrapped{msg: "justificativa debe tener al menos 15 caracteres", base: ErrValidation}
)

// wrapped error con mensaje propio que además satisface errors.Is(base).
type wrapped struct {
	msg  string
	base error
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.base }
