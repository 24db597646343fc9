package service

import (
	"context"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
	"github.com/sefrin/empfehlungslink/internal/repository"
	"github.com/sefrin/empfehlungslink/internal/utils"
)

// AdminService - тонкая оркестрация над Store для админского CRUD.
// Валидация запроса здесь, инварианты уникальности в хранилище.
type AdminService struct {
	store repository.Store
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) CreateCustomer(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error) {
	id := utils.SanitizeInput(req.ID)
	formID := utils.SanitizeInput(req.FormID)

	if id == "" || formID == "" {
		return nil, apperrors.NewValidationError("id", "ID und formId sind erforderlich")
	}

	if err := utils.ValidateIdentifier("id", id); err != nil {
		return nil, err
	}

	customer := &model.Customer{
		ID:        id,
		FormID:    formID,
		CreatedAt: nowUTC(),
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

func (s *AdminService) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("id", "ID ist erforderlich")
	}
	return s.store.GetCustomerWithRedirects(ctx, id)
}

func (s *AdminService) UpdateCustomer(ctx context.Context, id string, req *model.UpdateCustomerRequest) (*model.Customer, error) {
	formID := utils.SanitizeInput(req.FormID)
	if formID == "" {
		return nil, apperrors.NewValidationError("formId", "Form-ID ist erforderlich")
	}

	return s.store.UpdateCustomer(ctx, id, formID)
}

// DeleteCustomer удаляет клиента каскадно и возвращает прежнее состояние
// (для аудита на стороне вызывающего UI)
func (s *AdminService) DeleteCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("id", "ID ist erforderlich")
	}
	return s.store.DeleteCustomer(ctx, id)
}

func (s *AdminService) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	return s.store.ListCustomers(ctx)
}

func (s *AdminService) CreateRedirect(ctx context.Context, req *model.CreateRedirectRequest) (*model.Redirect, error) {
	customerID := utils.SanitizeInput(req.CustomerID)
	code := utils.SanitizeInput(req.Code)
	amID := utils.SanitizeInput(req.AmID)
	name := utils.SanitizeInput(req.Empfehlungsgeber)

	if customerID == "" || amID == "" || name == "" {
		return nil, apperrors.NewValidationError("am_id", "Alle Felder (customerId, am_id, empfehlungsgeber) sind erforderlich")
	}

	// По умолчанию публичный код совпадает с am_id
	if code == "" {
		code = amID
	}

	if err := utils.ValidateIdentifier("code", code); err != nil {
		return nil, err
	}
	if err := utils.ValidateIdentifier("am_id", amID); err != nil {
		return nil, err
	}

	now := nowUTC()
	redirect := &model.Redirect{
		Code:             code,
		CustomerID:       customerID,
		AmID:             amID,
		Empfehlungsgeber: name,
		CreatedAt:        now,
		UpdatedAt:        now,
		Count:            0,
	}

	if err := s.store.CreateRedirect(ctx, redirect); err != nil {
		return nil, err
	}

	return redirect, nil
}

func (s *AdminService) GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	if customerID == "" || code == "" {
		return nil, apperrors.NewValidationError("code", "customerId und code sind erforderlich")
	}
	return s.store.GetRedirect(ctx, customerID, code)
}

// DeleteRedirect возвращает удаленную запись в ее прежнем состоянии
func (s *AdminService) DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	if customerID == "" || code == "" {
		return nil, apperrors.NewValidationError("code", "customerId und code sind erforderlich")
	}
	return s.store.DeleteRedirect(ctx, customerID, code)
}

func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	return s.store.Stats(ctx)
}
