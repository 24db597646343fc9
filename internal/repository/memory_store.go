package repository

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// MemoryStore - эталонная реализация Store в памяти.
// Используется в тестах и как драйвер по умолчанию для локальной разработки.
type MemoryStore struct {
	mu        sync.RWMutex
	customers map[string]*customerRecord
}

type customerRecord struct {
	customer  model.Customer
	redirects map[string]*model.Redirect
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]*customerRecord),
	}
}

func (s *MemoryStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.customers[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	customer := rec.customer
	return &customer, nil
}

func (s *MemoryStore) GetCustomerWithRedirects(ctx context.Context, id string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.customers[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	customer := rec.customer
	customer.Redirects = rec.sortedRedirects()
	return &customer, nil
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customer.ID]; exists {
		return apperrors.ErrCustomerExists
	}

	s.customers[customer.ID] = &customerRecord{
		customer:  *customer,
		redirects: make(map[string]*model.Redirect),
	}
	return nil
}

func (s *MemoryStore) UpdateCustomer(ctx context.Context, id, formID string) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.customers[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	rec.customer.FormID = formID

	customer := rec.customer
	customer.Redirects = rec.sortedRedirects()
	return &customer, nil
}

func (s *MemoryStore) DeleteCustomer(ctx context.Context, id string) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.customers[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	// Удаление клиента каскадно удаляет все его редиректы
	deleted := rec.customer
	deleted.Redirects = rec.sortedRedirects()
	delete(s.customers, id)

	return &deleted, nil
}

func (s *MemoryStore) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.CustomerSummary, 0, len(s.customers))
	for _, rec := range s.customers {
		summaries = append(summaries, model.CustomerSummary{
			ID:            rec.customer.ID,
			FormID:        rec.customer.FormID,
			CreatedAt:     rec.customer.CreatedAt,
			RedirectCount: int64(len(rec.redirects)),
		})
	}

	// Стабильный порядок: по времени создания, новые сверху
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})

	return summaries, nil
}

func (s *MemoryStore) GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.customers[customerID]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	redirect, exists := rec.redirects[code]
	if !exists {
		return nil, apperrors.ErrRedirectNotFound
	}

	result := *redirect
	return &result, nil
}

func (s *MemoryStore) FindRedirectByAmID(ctx context.Context, customerID, amID string) (*model.Redirect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.customers[customerID]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	for _, redirect := range rec.redirects {
		if redirect.AmID == amID {
			result := *redirect
			return &result, nil
		}
	}

	return nil, apperrors.ErrRedirectNotFound
}

func (s *MemoryStore) CreateRedirect(ctx context.Context, redirect *model.Redirect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.customers[redirect.CustomerID]
	if !exists {
		return apperrors.ErrCustomerNotFound
	}

	// Порядок проверок фиксирован: сначала code, потом am_id, потом комбинация
	if _, exists := rec.redirects[redirect.Code]; exists {
		return apperrors.ErrCodeExists
	}

	for _, existing := range rec.redirects {
		if existing.AmID == redirect.AmID {
			return apperrors.ErrAmIDExists
		}
	}

	for _, existing := range rec.redirects {
		if existing.AmID == redirect.AmID && existing.Empfehlungsgeber == redirect.Empfehlungsgeber {
			return apperrors.ErrReferrerExists
		}
	}

	stored := *redirect
	rec.redirects[redirect.Code] = &stored
	return nil
}

func (s *MemoryStore) DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.customers[customerID]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	redirect, exists := rec.redirects[code]
	if !exists {
		return nil, apperrors.ErrRedirectNotFound
	}

	deleted := *redirect
	delete(rec.redirects, code)
	return &deleted, nil
}

func (s *MemoryStore) IncrementVisit(ctx context.Context, customerID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.customers[customerID]
	if !exists {
		return apperrors.ErrCustomerNotFound
	}

	redirect, exists := rec.redirects[code]
	if !exists {
		return apperrors.ErrRedirectNotFound
	}

	redirect.Count++
	redirect.UpdatedAt = nowUTC()
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.Stats{}
	for _, rec := range s.customers {
		stats.Customers++
		for _, redirect := range rec.redirects {
			stats.Redirects++
			stats.Visits += redirect.Count
		}
	}

	return stats, nil
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sortedRedirects возвращает копии редиректов, новые сверху
func (rec *customerRecord) sortedRedirects() []model.Redirect {
	redirects := make([]model.Redirect, 0, len(rec.redirects))
	for _, redirect := range rec.redirects {
		redirects = append(redirects, *redirect)
	}

	sort.Slice(redirects, func(i, j int) bool {
		if !redirects[i].CreatedAt.Equal(redirects[j].CreatedAt) {
			return redirects[i].CreatedAt.After(redirects[j].CreatedAt)
		}
		return redirects[i].Code < redirects[j].Code
	})

	return redirects
}
