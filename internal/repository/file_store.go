package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// FileStore хранит всю карту клиентов в одном JSON файле.
// Формат файла совместим с историческим redirects.json:
//
//	{ "<kunde>": { "formId": "...", "redirects": { "<code>": { "am_id": ..., "empfehlungsgeber": ..., ... } } } }
type FileStore struct {
	mu   sync.RWMutex
	path string
	data map[string]*fileCustomer
}

type fileCustomer struct {
	FormID    string                   `json:"formId"`
	CreatedAt time.Time                `json:"createdAt"`
	Redirects map[string]*fileRedirect `json:"redirects"`
}

type fileRedirect struct {
	AmID             string    `json:"am_id"`
	Empfehlungsgeber string    `json:"empfehlungsgeber"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Count            int64     `json:"count"`
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: make(map[string]*fileCustomer),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Новый файл появится при первой записи
			return s, nil
		}
		return nil, apperrors.NewStorageError("failed to read data file", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, apperrors.NewStorageError("failed to parse data file", err)
		}
	}

	for _, rec := range s.data {
		if rec.Redirects == nil {
			rec.Redirects = make(map[string]*fileRedirect)
		}
	}

	return s, nil
}

// save пишет карту атомарно: сначала во временный файл, потом rename
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal data file", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return apperrors.NewStorageError("failed to write data file", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.NewStorageError("failed to replace data file", err)
	}

	return nil
}

func (s *FileStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	return rec.toModel(id), nil
}

func (s *FileStore) GetCustomerWithRedirects(ctx context.Context, id string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	customer := rec.toModel(id)
	customer.Redirects = rec.sortedRedirects(id)
	return customer, nil
}

func (s *FileStore) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[customer.ID]; exists {
		return apperrors.ErrCustomerExists
	}

	s.data[customer.ID] = &fileCustomer{
		FormID:    customer.FormID,
		CreatedAt: customer.CreatedAt,
		Redirects: make(map[string]*fileRedirect),
	}

	if err := s.save(); err != nil {
		delete(s.data, customer.ID)
		return err
	}
	return nil
}

func (s *FileStore) UpdateCustomer(ctx context.Context, id, formID string) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	prev := rec.FormID
	rec.FormID = formID

	if err := s.save(); err != nil {
		rec.FormID = prev
		return nil, err
	}

	customer := rec.toModel(id)
	customer.Redirects = rec.sortedRedirects(id)
	return customer, nil
}

func (s *FileStore) DeleteCustomer(ctx context.Context, id string) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	deleted := rec.toModel(id)
	deleted.Redirects = rec.sortedRedirects(id)
	delete(s.data, id)

	if err := s.save(); err != nil {
		s.data[id] = rec
		return nil, err
	}
	return deleted, nil
}

func (s *FileStore) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.CustomerSummary, 0, len(s.data))
	for id, rec := range s.data {
		summaries = append(summaries, model.CustomerSummary{
			ID:            id,
			FormID:        rec.FormID,
			CreatedAt:     rec.CreatedAt,
			RedirectCount: int64(len(rec.Redirects)),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})

	return summaries, nil
}

func (s *FileStore) GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[customerID]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	redirect, exists := rec.Redirects[code]
	if !exists {
		return nil, apperrors.ErrRedirectNotFound
	}

	return redirect.toModel(customerID, code), nil
}

func (s *FileStore) FindRedirectByAmID(ctx context.Context, customerID, amID string) (*model.Redirect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[customerID]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	for code, redirect := range rec.Redirects {
		if redirect.AmID == amID {
			return redirect.toModel(customerID, code), nil
		}
	}

	return nil, apperrors.ErrRedirectNotFound
}

func (s *FileStore) CreateRedirect(ctx context.Context, redirect *model.Redirect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[redirect.CustomerID]
	if !exists {
		return apperrors.ErrCustomerNotFound
	}

	if _, exists := rec.Redirects[redirect.Code]; exists {
		return apperrors.ErrCodeExists
	}

	for _, existing := range rec.Redirects {
		if existing.AmID == redirect.AmID {
			return apperrors.ErrAmIDExists
		}
	}

	for _, existing := range rec.Redirects {
		if existing.AmID == redirect.AmID && existing.Empfehlungsgeber == redirect.Empfehlungsgeber {
			return apperrors.ErrReferrerExists
		}
	}

	rec.Redirects[redirect.Code] = &fileRedirect{
		AmID:             redirect.AmID,
		Empfehlungsgeber: redirect.Empfehlungsgeber,
		CreatedAt:        redirect.CreatedAt,
		UpdatedAt:        redirect.UpdatedAt,
		Count:            redirect.Count,
	}

	if err := s.save(); err != nil {
		delete(rec.Redirects, redirect.Code)
		return err
	}
	return nil
}

func (s *FileStore) DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[customerID]
	if !exists {
		return nil, apperrors.ErrCustomerNotFound
	}

	redirect, exists := rec.Redirects[code]
	if !exists {
		return nil, apperrors.ErrRedirectNotFound
	}

	deleted := redirect.toModel(customerID, code)
	delete(rec.Redirects, code)

	if err := s.save(); err != nil {
		rec.Redirects[code] = redirect
		return nil, err
	}
	return deleted, nil
}

func (s *FileStore) IncrementVisit(ctx context.Context, customerID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[customerID]
	if !exists {
		return apperrors.ErrCustomerNotFound
	}

	redirect, exists := rec.Redirects[code]
	if !exists {
		return apperrors.ErrRedirectNotFound
	}

	prevCount, prevUpdated := redirect.Count, redirect.UpdatedAt
	redirect.Count++
	redirect.UpdatedAt = nowUTC()

	if err := s.save(); err != nil {
		redirect.Count, redirect.UpdatedAt = prevCount, prevUpdated
		return err
	}
	return nil
}

func (s *FileStore) Stats(ctx context.Context) (*model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.Stats{}
	for _, rec := range s.data {
		stats.Customers++
		for _, redirect := range rec.Redirects {
			stats.Redirects++
			stats.Visits += redirect.Count
		}
	}

	return stats, nil
}

func (s *FileStore) HealthCheck(ctx context.Context) error {
	// Достаточно проверить, что директория с файлом доступна
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("data directory not accessible: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (c *fileCustomer) toModel(id string) *model.Customer {
	return &model.Customer{
		ID:        id,
		FormID:    c.FormID,
		CreatedAt: c.CreatedAt,
	}
}

func (c *fileCustomer) sortedRedirects(customerID string) []model.Redirect {
	redirects := make([]model.Redirect, 0, len(c.Redirects))
	for code, redirect := range c.Redirects {
		redirects = append(redirects, *redirect.toModel(customerID, code))
	}

	sort.Slice(redirects, func(i, j int) bool {
		if !redirects[i].CreatedAt.Equal(redirects[j].CreatedAt) {
			return redirects[i].CreatedAt.After(redirects[j].CreatedAt)
		}
		return redirects[i].Code < redirects[j].Code
	})

	return redirects
}

func (r *fileRedirect) toModel(customerID, code string) *model.Redirect {
	return &model.Redirect{
		Code:             code,
		CustomerID:       customerID,
		AmID:             r.AmID,
		Empfehlungsgeber: r.Empfehlungsgeber,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Count:            r.Count,
	}
}
