package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// RedirectResolver - то, что нужно публичному редиректу от сервисного слоя
type RedirectResolver interface {
	Resolve(ctx context.Context, customerID, code string) (*model.Resolution, error)
	RecordVisit(ctx context.Context, customerID, code string) error
}

type RedirectHandler struct {
	resolver RedirectResolver
}

func NewRedirectHandler(resolver RedirectResolver) *RedirectHandler {
	return &RedirectHandler{resolver: resolver}
}

// Redirect обрабатывает GET /:kundenname/:code
func (h *RedirectHandler) Redirect(c *gin.Context) {
	kundenname := c.Param("kundenname")
	code := c.Param("code")

	resolution, err := h.resolver.Resolve(c.Request.Context(), kundenname, code)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCustomerNotFound):
			c.String(http.StatusNotFound, "Kunde nicht gefunden")
		case errors.Is(err, apperrors.ErrRedirectNotFound):
			c.String(http.StatusNotFound, "Weiterleitungs-Code nicht gefunden")
		case apperrors.IsValidationError(err):
			c.String(http.StatusNotFound, "Weiterleitungs-Code nicht gefunden")
		default:
			log.Printf("Failed to resolve redirect %s/%s: %v", kundenname, code, err)
			c.String(http.StatusInternalServerError, "Interner Server-Fehler")
		}
		return
	}

	// Учет визита не имеет права задержать или сорвать редирект:
	// пишем счетчик в фоне на отвязанном от запроса контексте
	go func(code string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.resolver.RecordVisit(ctx, kundenname, code); err != nil {
			log.Printf("Failed to record visit for %s/%s: %v", kundenname, code, err)
		}
	}(resolution.Code)

	// 302 - временный редирект, метод остается GET
	c.Redirect(http.StatusFound, resolution.TargetURL)
}
