package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

func testCustomer(id, formID string) *model.Customer {
	return &model.Customer{
		ID:        id,
		FormID:    formID,
		CreatedAt: nowUTC(),
	}
}

func testRedirect(customerID, code, amID, name string) *model.Redirect {
	now := nowUTC()
	return &model.Redirect{
		Code:             code,
		CustomerID:       customerID,
		AmID:             amID,
		Empfehlungsgeber: name,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestMemoryStore_CustomerCRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateCustomer(ctx, testCustomer("sefrin", "form-1")); err != nil {
		t.Fatalf("CreateCustomer() unexpected error = %v", err)
	}

	if err := store.CreateCustomer(ctx, testCustomer("sefrin", "form-2")); !errors.Is(err, apperrors.ErrCustomerExists) {
		t.Errorf("CreateCustomer() duplicate expected ErrCustomerExists, got %v", err)
	}

	customer, err := store.GetCustomer(ctx, "sefrin")
	if err != nil {
		t.Fatalf("GetCustomer() unexpected error = %v", err)
	}
	if customer.FormID != "form-1" {
		t.Errorf("GetCustomer() FormID = %s, want form-1", customer.FormID)
	}

	if _, err := store.GetCustomer(ctx, "unbekannt"); !errors.Is(err, apperrors.ErrCustomerNotFound) {
		t.Errorf("GetCustomer() expected ErrCustomerNotFound, got %v", err)
	}

	updated, err := store.UpdateCustomer(ctx, "sefrin", "form-2")
	if err != nil {
		t.Fatalf("UpdateCustomer() unexpected error = %v", err)
	}
	if updated.FormID != "form-2" {
		t.Errorf("UpdateCustomer() FormID = %s, want form-2", updated.FormID)
	}

	deleted, err := store.DeleteCustomer(ctx, "sefrin")
	if err != nil {
		t.Fatalf("DeleteCustomer() unexpected error = %v", err)
	}
	if deleted.FormID != "form-2" {
		t.Errorf("DeleteCustomer() FormID = %s, want prior state form-2", deleted.FormID)
	}

	if _, err := store.GetCustomer(ctx, "sefrin"); !errors.Is(err, apperrors.ErrCustomerNotFound) {
		t.Errorf("GetCustomer() after delete expected ErrCustomerNotFound, got %v", err)
	}
}

func TestMemoryStore_RedirectCRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateCustomer(ctx, testCustomer("sefrin", "form-1")); err != nil {
		t.Fatalf("CreateCustomer() unexpected error = %v", err)
	}

	if err := store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann")); err != nil {
		t.Fatalf("CreateRedirect() unexpected error = %v", err)
	}

	if err := store.CreateRedirect(ctx, testRedirect("unbekannt", "AM123", "AM123", "Max Mustermann")); !errors.Is(err, apperrors.ErrCustomerNotFound) {
		t.Errorf("CreateRedirect() for unknown customer expected ErrCustomerNotFound, got %v", err)
	}

	redirect, err := store.GetRedirect(ctx, "sefrin", "AM123")
	if err != nil {
		t.Fatalf("GetRedirect() unexpected error = %v", err)
	}
	if redirect.Empfehlungsgeber != "Max Mustermann" {
		t.Errorf("GetRedirect() Empfehlungsgeber = %s, want Max Mustermann", redirect.Empfehlungsgeber)
	}
	if redirect.Count != 0 {
		t.Errorf("GetRedirect() Count = %d, want 0", redirect.Count)
	}

	if _, err := store.GetRedirect(ctx, "sefrin", "nope"); !errors.Is(err, apperrors.ErrRedirectNotFound) {
		t.Errorf("GetRedirect() expected ErrRedirectNotFound, got %v", err)
	}

	deleted, err := store.DeleteRedirect(ctx, "sefrin", "AM123")
	if err != nil {
		t.Fatalf("DeleteRedirect() unexpected error = %v", err)
	}
	if deleted.AmID != "AM123" {
		t.Errorf("DeleteRedirect() AmID = %s, want AM123", deleted.AmID)
	}

	if _, err := store.GetRedirect(ctx, "sefrin", "AM123"); !errors.Is(err, apperrors.ErrRedirectNotFound) {
		t.Errorf("GetRedirect() after delete expected ErrRedirectNotFound, got %v", err)
	}
}

func TestMemoryStore_UniquenessOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "partner-max", "AM123", "Max Mustermann"))

	// Конфликт кода побеждает конфликт am_id
	err := store.CreateRedirect(ctx, testRedirect("sefrin", "partner-max", "AM123", "Max Mustermann"))
	if !errors.Is(err, apperrors.ErrCodeExists) {
		t.Errorf("CreateRedirect() expected ErrCodeExists first, got %v", err)
	}

	err = store.CreateRedirect(ctx, testRedirect("sefrin", "anderer-code", "AM123", "Erika Musterfrau"))
	if !errors.Is(err, apperrors.ErrAmIDExists) {
		t.Errorf("CreateRedirect() expected ErrAmIDExists, got %v", err)
	}

	// Одинаковый код у разных клиентов - не конфликт
	store.CreateCustomer(ctx, testCustomer("zweiter", "form-2"))
	if err := store.CreateRedirect(ctx, testRedirect("zweiter", "partner-max", "AM123", "Max Mustermann")); err != nil {
		t.Errorf("CreateRedirect() same code for other customer unexpected error = %v", err)
	}
}

func TestMemoryStore_FindRedirectByAmID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "partner-max", "AM123", "Max Mustermann"))

	redirect, err := store.FindRedirectByAmID(ctx, "sefrin", "AM123")
	if err != nil {
		t.Fatalf("FindRedirectByAmID() unexpected error = %v", err)
	}
	if redirect.Code != "partner-max" {
		t.Errorf("FindRedirectByAmID() Code = %s, want partner-max", redirect.Code)
	}

	if _, err := store.FindRedirectByAmID(ctx, "sefrin", "AM999"); !errors.Is(err, apperrors.ErrRedirectNotFound) {
		t.Errorf("FindRedirectByAmID() expected ErrRedirectNotFound, got %v", err)
	}
}

func TestMemoryStore_CascadeDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM456", "AM456", "Erika Musterfrau"))

	deleted, err := store.DeleteCustomer(ctx, "sefrin")
	if err != nil {
		t.Fatalf("DeleteCustomer() unexpected error = %v", err)
	}

	if len(deleted.Redirects) != 2 {
		t.Errorf("DeleteCustomer() len(Redirects) = %d, want 2", len(deleted.Redirects))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() unexpected error = %v", err)
	}
	if stats.Customers != 0 || stats.Redirects != 0 {
		t.Errorf("Stats() after cascade = %+v, want empty", stats)
	}
}

func TestMemoryStore_ListCustomers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	older := testCustomer("aelter", "form-1")
	older.CreatedAt = nowUTC().Add(-time.Hour)
	store.CreateCustomer(ctx, older)

	store.CreateCustomer(ctx, testCustomer("neuer", "form-2"))
	store.CreateRedirect(ctx, testRedirect("neuer", "AM123", "AM123", "Max Mustermann"))

	summaries, err := store.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers() unexpected error = %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("ListCustomers() len = %d, want 2", len(summaries))
	}

	// Новые сверху
	if summaries[0].ID != "neuer" {
		t.Errorf("ListCustomers() [0].ID = %s, want neuer", summaries[0].ID)
	}

	if summaries[0].RedirectCount != 1 {
		t.Errorf("ListCustomers() [0].RedirectCount = %d, want 1", summaries[0].RedirectCount)
	}
}

func TestMemoryStore_IncrementVisit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann"))

	before, _ := store.GetRedirect(ctx, "sefrin", "AM123")

	if err := store.IncrementVisit(ctx, "sefrin", "AM123"); err != nil {
		t.Fatalf("IncrementVisit() unexpected error = %v", err)
	}

	after, _ := store.GetRedirect(ctx, "sefrin", "AM123")
	if after.Count != 1 {
		t.Errorf("IncrementVisit() Count = %d, want 1", after.Count)
	}
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Error("IncrementVisit() UpdatedAt went backwards")
	}

	if err := store.IncrementVisit(ctx, "sefrin", "nope"); !errors.Is(err, apperrors.ErrRedirectNotFound) {
		t.Errorf("IncrementVisit() expected ErrRedirectNotFound, got %v", err)
	}
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann"))

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if err := store.IncrementVisit(ctx, "sefrin", "AM123"); err != nil {
					t.Errorf("IncrementVisit() unexpected error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	redirect, err := store.GetRedirect(ctx, "sefrin", "AM123")
	if err != nil {
		t.Fatalf("GetRedirect() unexpected error = %v", err)
	}

	if redirect.Count != goroutines*perGoroutine {
		t.Errorf("Count = %d, want %d (lost updates)", redirect.Count, goroutines*perGoroutine)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann"))

	redirect, _ := store.GetRedirect(ctx, "sefrin", "AM123")
	redirect.Count = 999

	fresh, _ := store.GetRedirect(ctx, "sefrin", "AM123")
	if fresh.Count != 0 {
		t.Errorf("mutating a returned redirect leaked into the store: Count = %d", fresh.Count)
	}
}
