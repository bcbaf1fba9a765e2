// Package fiscal reglas de dominio de la NFC-e: máquina de estados y cálculo de ICMS.
package fiscal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/pdv-nfce/internal/domain"
	"github.com/jhoicas/pdv-nfce/internal/domain/entity"
)

// MinJustificationLength mínimo de caracteres de la justificativa de cancelamento.
const MinJustificationLength = 15

var validNext = map[string]map[string]bool{
	entity.NFCeStatusPendente: {
		entity.NFCeStatusAutorizada: true,
		entity.NFCeStatusRejeitada:  true,
	},
	entity.NFCeStatusAutorizada: {
		entity.NFCeStatusCancelada: true,
	},
	entity.NFCeStatusRejeitada: {},
	entity.NFCeStatusCancelada: {},
}

// IsValidStatus reporta si s es un estado conocido.
func IsValidStatus(s string) bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition reporta si from -> to es una transición legal.
func CanTransition(from, to string) bool {
	return validNext[from][to]
}

// IsFinal estados sin salida.
func IsFinal(s string) bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

// CheckTransmit valida que el documento pueda enviarse a la SEFAZ.
func CheckTransmit(status string) error {
	if status != entity.NFCeStatusPendente {
		return fmt.Errorf("%w: estado actual %s", domain.ErrAlreadyTransmitted, status)
	}
	return nil
}

// CheckCancel valida estado y justificativa para el cancelamento.
// La justificativa se recorta y se cuenta en caracteres (no bytes).
func CheckCancel(status, justificativa string) (string, error) {
	if status != entity.NFCeStatusAutorizada {
		return "", fmt.Errorf("%w: no se puede cancelar un documento %s", domain.ErrInvalidState, status)
	}
	j := strings.TrimSpace(justificativa)
	if utf8.RuneCountInString(j) < MinJustificationLength {
		return "", domain.ErrJustificationTooShort
	}
	return j, nil
}

// CheckPrintable el DANFE y el XML autorizado solo existen para documentos autorizados.
func CheckPrintable(status string) error {
	if status != entity.NFCeStatusAutorizada {
		return fmt.Errorf("%w: documento %s no es imprimible", domain.ErrInvalidState, status)
	}
	return nil
}
