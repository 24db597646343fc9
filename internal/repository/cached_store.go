package repository

import (
	"context"
	"errors"
	"log"

	"github.com/sefrin/empfehlungslink/internal/cache"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// CachedStore - декоратор над Store с кэшированием горячих чтений.
// Кэшируются только записи, которые читает публичный redirect
// (клиент и редирект); админские списки всегда идут в хранилище.
type CachedStore struct {
	inner Store
	cache cache.Cache
	keys  *cache.KeyBuilder
}

func NewCachedStore(inner Store, c cache.Cache, keys *cache.KeyBuilder) *CachedStore {
	if keys == nil {
		keys = cache.DefaultKeyBuilder
	}
	return &CachedStore{
		inner: inner,
		cache: c,
		keys:  keys,
	}
}

func (s *CachedStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	cacheKey := s.keys.Customer(id)

	var cached model.Customer
	err := s.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Ошибка кэша не фатальна, падаем в хранилище
		log.Printf("Cache error: %v", err)
	}

	customer, err := s.inner.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, customer); err != nil {
		log.Printf("Failed to cache customer: %v", err)
	}

	return customer, nil
}

func (s *CachedStore) GetCustomerWithRedirects(ctx context.Context, id string) (*model.Customer, error) {
	return s.inner.GetCustomerWithRedirects(ctx, id)
}

func (s *CachedStore) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	return s.inner.CreateCustomer(ctx, customer)
}

func (s *CachedStore) UpdateCustomer(ctx context.Context, id, formID string) (*model.Customer, error) {
	customer, err := s.inner.UpdateCustomer(ctx, id, formID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, s.keys.Customer(id))
	return customer, nil
}

func (s *CachedStore) DeleteCustomer(ctx context.Context, id string) (*model.Customer, error) {
	deleted, err := s.inner.DeleteCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := []string{s.keys.Customer(id)}
	for _, redirect := range deleted.Redirects {
		keys = append(keys, s.keys.Redirect(id, redirect.Code))
	}
	s.invalidate(ctx, keys...)

	return deleted, nil
}

func (s *CachedStore) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	return s.inner.ListCustomers(ctx)
}

func (s *CachedStore) GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	cacheKey := s.keys.Redirect(customerID, code)

	var cached model.Redirect
	err := s.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("Cache error: %v", err)
	}

	redirect, err := s.inner.GetRedirect(ctx, customerID, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, redirect); err != nil {
		log.Printf("Failed to cache redirect: %v", err)
	}

	return redirect, nil
}

func (s *CachedStore) FindRedirectByAmID(ctx context.Context, customerID, amID string) (*model.Redirect, error) {
	return s.inner.FindRedirectByAmID(ctx, customerID, amID)
}

func (s *CachedStore) CreateRedirect(ctx context.Context, redirect *model.Redirect) error {
	return s.inner.CreateRedirect(ctx, redirect)
}

func (s *CachedStore) DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	deleted, err := s.inner.DeleteRedirect(ctx, customerID, code)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, s.keys.Redirect(customerID, code))
	return deleted, nil
}

func (s *CachedStore) IncrementVisit(ctx context.Context, customerID, code string) error {
	if err := s.inner.IncrementVisit(ctx, customerID, code); err != nil {
		return err
	}

	// Инвалидируем, чтобы следующий GetRedirect увидел свежий count
	s.invalidate(ctx, s.keys.Redirect(customerID, code))
	return nil
}

func (s *CachedStore) Stats(ctx context.Context) (*model.Stats, error) {
	return s.inner.Stats(ctx)
}

func (s *CachedStore) HealthCheck(ctx context.Context) error {
	return s.inner.HealthCheck(ctx)
}

func (s *CachedStore) Close() error {
	return s.inner.Close()
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("Failed to invalidate cache: %v", err)
	}
}
