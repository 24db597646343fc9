package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// AdminRegistry - операции реестра, которые нужны админским ручкам
type AdminRegistry interface {
	CreateCustomer(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req *model.UpdateCustomerRequest) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.CustomerSummary, error)
	CreateRedirect(ctx context.Context, req *model.CreateRedirectRequest) (*model.Redirect, error)
	GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error)
	DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

type AdminHandler struct {
	registry AdminRegistry
}

func NewAdminHandler(registry AdminRegistry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

// ListCustomers обрабатывает GET /admin/customer
func (h *AdminHandler) ListCustomers(c *gin.Context) {
	customers, err := h.registry.ListCustomers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, customers)
}

// CreateCustomer обрабатывает POST /admin/customer
func (h *AdminHandler) CreateCustomer(c *gin.Context) {
	var req model.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ungültiger Request-Body"})
		return
	}

	customer, err := h.registry.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// GetCustomer обрабатывает GET /admin/customer/:id
func (h *AdminHandler) GetCustomer(c *gin.Context) {
	customer, err := h.registry.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer обрабатывает PUT /admin/customer/:id
func (h *AdminHandler) UpdateCustomer(c *gin.Context) {
	var req model.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ungültiger Request-Body"})
		return
	}

	customer, err := h.registry.UpdateCustomer(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer обрабатывает DELETE /admin/customer/:id
func (h *AdminHandler) DeleteCustomer(c *gin.Context) {
	if _, err := h.registry.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateRedirect обрабатывает POST /admin/redirect
func (h *AdminHandler) CreateRedirect(c *gin.Context) {
	var req model.CreateRedirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ungültiger Request-Body"})
		return
	}

	redirect, err := h.registry.CreateRedirect(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, redirect)
}

// GetRedirect обрабатывает GET /admin/redirect/:customerId/:code
func (h *AdminHandler) GetRedirect(c *gin.Context) {
	redirect, err := h.registry.GetRedirect(c.Request.Context(), c.Param("customerId"), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, redirect)
}

// DeleteRedirect обрабатывает DELETE /admin/redirect/:customerId/:code
func (h *AdminHandler) DeleteRedirect(c *gin.Context) {
	if _, err := h.registry.DeleteRedirect(c.Request.Context(), c.Param("customerId"), c.Param("code")); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Stats обрабатывает GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.registry.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleError переводит ошибки доменного слоя в HTTP статусы.
// Тексты ответов исторические, их парсит существующий админский UI.
func (h *AdminHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Kunde nicht gefunden"})

	case errors.Is(err, apperrors.ErrRedirectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Weiterleitung nicht gefunden"})

	case apperrors.IsConflict(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": conflictMessage(err)})

	case apperrors.IsValidationError(err):
		validationErr := apperrors.GetValidationError(err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})

	default:
		log.Printf("Admin operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Interner Server-Fehler"})
	}
}

// conflictMessage - исторические тексты для каждого нарушения уникальности
func conflictMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrCustomerExists):
		return "Kunde mit dieser ID existiert bereits"
	case errors.Is(err, apperrors.ErrCodeExists):
		return "Weiterleitung mit diesem internen Code existiert bereits für diesen Kunden"
	case errors.Is(err, apperrors.ErrAmIDExists):
		return "Weiterleitung mit dieser AM ID existiert bereits für diesen Kunden"
	default:
		return "Kombination aus Empfehlungsgeber und am_id existiert bereits"
	}
}
