package utils

import (
	"strings"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
)

const maxIdentifierLength = 64

// ValidateIdentifier проверяет значение, которое попадает в сегмент пути URL
// (id клиента, code, am_id). Тексты ошибок уходят на клиента, поэтому немецкие.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return apperrors.NewValidationError(field, field+" darf nicht leer sein")
	}

	if len(value) > maxIdentifierLength {
		return apperrors.NewValidationError(field, field+" ist zu lang (max. 64 Zeichen)")
	}

	if strings.ContainsAny(value, "/?#%") {
		return apperrors.NewValidationError(field, field+" darf keine Zeichen '/', '?', '#', '%' enthalten")
	}

	return nil
}

func SanitizeInput(input string) string {
	// Удаляем управляющие символы и обрезаем пробелы
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1 // удаляем символ
		}
		return r
	}, input)

	return strings.TrimSpace(result)
}
