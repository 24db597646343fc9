package repository

import (
	"context"

	"github.com/sefrin/empfehlungslink/internal/model"
)

// Store - единая точка доступа к клиентам и их редиректам.
// Реализации: MemoryStore, FileStore, SQLiteStore, GormStore
// и кэширующий декоратор CachedStore.
type Store interface {
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	GetCustomerWithRedirects(ctx context.Context, id string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, customer *model.Customer) error
	UpdateCustomer(ctx context.Context, id, formID string) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.CustomerSummary, error)

	GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error)
	FindRedirectByAmID(ctx context.Context, customerID, amID string) (*model.Redirect, error)
	CreateRedirect(ctx context.Context, redirect *model.Redirect) error
	DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error)

	// IncrementVisit атомарно делает count += 1 и обновляет updatedAt.
	// Реализация не имеет права терять апдейты при конкурентных вызовах.
	IncrementVisit(ctx context.Context, customerID, code string) error

	Stats(ctx context.Context) (*model.Stats, error)

	HealthCheck(ctx context.Context) error
	Close() error
}
