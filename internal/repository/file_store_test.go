package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "redirects.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() unexpected error = %v", err)
	}
	return store, path
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	if err := store.CreateCustomer(ctx, testCustomer("sefrin", "form-1")); err != nil {
		t.Fatalf("CreateCustomer() unexpected error = %v", err)
	}
	if err := store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann")); err != nil {
		t.Fatalf("CreateRedirect() unexpected error = %v", err)
	}
	if err := store.IncrementVisit(ctx, "sefrin", "AM123"); err != nil {
		t.Fatalf("IncrementVisit() unexpected error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen unexpected error = %v", err)
	}

	redirect, err := reopened.GetRedirect(ctx, "sefrin", "AM123")
	if err != nil {
		t.Fatalf("GetRedirect() after reopen unexpected error = %v", err)
	}

	if redirect.Count != 1 {
		t.Errorf("GetRedirect() after reopen Count = %d, want 1", redirect.Count)
	}
	if redirect.Empfehlungsgeber != "Max Mustermann" {
		t.Errorf("GetRedirect() after reopen Empfehlungsgeber = %s", redirect.Empfehlungsgeber)
	}
}

func TestFileStore_FileLayout(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann"))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error = %v", err)
	}

	// Формат файла: клиент -> formId + redirects -> code -> запись
	var data map[string]struct {
		FormID    string `json:"formId"`
		Redirects map[string]struct {
			AmID             string `json:"am_id"`
			Empfehlungsgeber string `json:"empfehlungsgeber"`
			Count            int64  `json:"count"`
		} `json:"redirects"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("Unmarshal() unexpected error = %v", err)
	}

	customer, exists := data["sefrin"]
	if !exists {
		t.Fatal("file layout: customer key missing")
	}
	if customer.FormID != "form-1" {
		t.Errorf("file layout: formId = %s, want form-1", customer.FormID)
	}

	redirect, exists := customer.Redirects["AM123"]
	if !exists {
		t.Fatal("file layout: redirect key missing")
	}
	if redirect.AmID != "AM123" || redirect.Empfehlungsgeber != "Max Mustermann" {
		t.Errorf("file layout: redirect = %+v", redirect)
	}
}

func TestFileStore_LoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redirects.json")

	// Файл в историческом формате, записанный другим инструментом
	seed := `{
  "sefrin": {
    "formId": "form-1",
    "redirects": {
      "AM123": {
        "am_id": "AM123",
        "empfehlungsgeber": "Max Mustermann",
        "createdAt": "2025-01-15T10:00:00Z",
        "updatedAt": "2025-01-15T10:00:00Z",
        "count": 42
      }
    }
  }
}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("WriteFile() unexpected error = %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() unexpected error = %v", err)
	}

	redirect, err := store.GetRedirect(context.Background(), "sefrin", "AM123")
	if err != nil {
		t.Fatalf("GetRedirect() unexpected error = %v", err)
	}

	if redirect.Count != 42 {
		t.Errorf("GetRedirect() Count = %d, want 42", redirect.Count)
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store, _ := newTestFileStore(t)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() unexpected error = %v", err)
	}
	if stats.Customers != 0 {
		t.Errorf("Stats() Customers = %d, want 0", stats.Customers)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redirects.json")
	if err := os.WriteFile(path, []byte("{kaputt"), 0o644); err != nil {
		t.Fatalf("WriteFile() unexpected error = %v", err)
	}

	if _, err := NewFileStore(path); err == nil {
		t.Error("NewFileStore() with corrupt file expected error, got nil")
	}
}

func TestFileStore_CascadeDeletePersists(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "AM123", "AM123", "Max Mustermann"))

	if _, err := store.DeleteCustomer(ctx, "sefrin"); err != nil {
		t.Fatalf("DeleteCustomer() unexpected error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen unexpected error = %v", err)
	}

	if _, err := reopened.GetCustomer(ctx, "sefrin"); !errors.Is(err, apperrors.ErrCustomerNotFound) {
		t.Errorf("GetCustomer() after reopen expected ErrCustomerNotFound, got %v", err)
	}
}

func TestFileStore_UniquenessOrder(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	store.CreateCustomer(ctx, testCustomer("sefrin", "form-1"))
	store.CreateRedirect(ctx, testRedirect("sefrin", "partner-max", "AM123", "Max Mustermann"))

	err := store.CreateRedirect(ctx, testRedirect("sefrin", "partner-max", "AM999", "Erika Musterfrau"))
	if !errors.Is(err, apperrors.ErrCodeExists) {
		t.Errorf("CreateRedirect() expected ErrCodeExists, got %v", err)
	}

	err = store.CreateRedirect(ctx, testRedirect("sefrin", "anderer-code", "AM123", "Erika Musterfrau"))
	if !errors.Is(err, apperrors.ErrAmIDExists) {
		t.Errorf("CreateRedirect() expected ErrAmIDExists, got %v", err)
	}
}
