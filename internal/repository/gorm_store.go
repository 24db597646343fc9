package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// GormStore - ORM-бэкенд. В продакшене работает поверх pgx-подключения
// к Postgres, в тестах поверх встроенного sqlite.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.Customer{}, &model.Redirect{}); err != nil {
		return nil, apperrors.NewStorageError("failed to migrate schema", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	customer := &model.Customer{}

	err := s.db.WithContext(ctx).First(customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCustomerNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get customer", err)
	}

	return customer, nil
}

func (s *GormStore) GetCustomerWithRedirects(ctx context.Context, id string) (*model.Customer, error) {
	customer := &model.Customer{}

	err := s.db.WithContext(ctx).
		Preload("Redirects", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, code")
		}).
		First(customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCustomerNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get customer", err)
	}

	if customer.Redirects == nil {
		customer.Redirects = make([]model.Redirect, 0)
	}
	return customer, nil
}

func (s *GormStore) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Customer{}).Where("id = ?", customer.ID).Count(&count).Error; err != nil {
			return apperrors.NewStorageError("failed to check customer", err)
		}
		if count > 0 {
			return apperrors.ErrCustomerExists
		}

		if err := tx.Create(customer).Error; err != nil {
			// Гонка двух конкурентных create упирается в PK
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrCustomerExists
			}
			return apperrors.NewStorageError("failed to create customer", err)
		}
		return nil
	})
}

func (s *GormStore) UpdateCustomer(ctx context.Context, id, formID string) (*model.Customer, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Update("form_id", formID)
	if result.Error != nil {
		return nil, apperrors.NewStorageError("failed to update customer", result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, apperrors.ErrCustomerNotFound
	}

	return s.GetCustomerWithRedirects(ctx, id)
}

func (s *GormStore) DeleteCustomer(ctx context.Context, id string) (*model.Customer, error) {
	deleted, err := s.GetCustomerWithRedirects(ctx, id)
	if err != nil {
		return nil, err
	}

	// Явное каскадное удаление в транзакции: не зависим от того,
	// включены ли FK у конкретного диалекта
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&model.Redirect{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Customer{}).Error
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to delete customer", err)
	}

	return deleted, nil
}

func (s *GormStore) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	summaries := make([]model.CustomerSummary, 0)

	// Один join вместо запроса на каждого клиента
	err := s.db.WithContext(ctx).
		Model(&model.Customer{}).
		Select("customers.id, customers.form_id, customers.created_at, COUNT(redirects.code) AS redirect_count").
		Joins("LEFT JOIN redirects ON redirects.customer_id = customers.id").
		Group("customers.id, customers.form_id, customers.created_at").
		Order("customers.created_at DESC, customers.id").
		Scan(&summaries).Error
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list customers", err)
	}

	return summaries, nil
}

func (s *GormStore) GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	redirect := &model.Redirect{}
	err := s.db.WithContext(ctx).
		First(redirect, "customer_id = ? AND code = ?", customerID, code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRedirectNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get redirect", err)
	}

	return redirect, nil
}

func (s *GormStore) FindRedirectByAmID(ctx context.Context, customerID, amID string) (*model.Redirect, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	redirect := &model.Redirect{}
	err := s.db.WithContext(ctx).
		First(redirect, "customer_id = ? AND am_id = ?", customerID, amID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRedirectNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to find redirect", err)
	}

	return redirect, nil
}

func (s *GormStore) CreateRedirect(ctx context.Context, redirect *model.Redirect) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Customer{}).Where("id = ?", redirect.CustomerID).Count(&count).Error; err != nil {
			return apperrors.NewStorageError("failed to check customer", err)
		}
		if count == 0 {
			return apperrors.ErrCustomerNotFound
		}

		if err := tx.Model(&model.Redirect{}).
			Where("customer_id = ? AND code = ?", redirect.CustomerID, redirect.Code).
			Count(&count).Error; err != nil {
			return apperrors.NewStorageError("failed to check code", err)
		}
		if count > 0 {
			return apperrors.ErrCodeExists
		}

		if err := tx.Model(&model.Redirect{}).
			Where("customer_id = ? AND am_id = ?", redirect.CustomerID, redirect.AmID).
			Count(&count).Error; err != nil {
			return apperrors.NewStorageError("failed to check am_id", err)
		}
		if count > 0 {
			return apperrors.ErrAmIDExists
		}

		if err := tx.Model(&model.Redirect{}).
			Where("customer_id = ? AND am_id = ? AND empfehlungsgeber = ?",
				redirect.CustomerID, redirect.AmID, redirect.Empfehlungsgeber).
			Count(&count).Error; err != nil {
			return apperrors.NewStorageError("failed to check combination", err)
		}
		if count > 0 {
			return apperrors.ErrReferrerExists
		}

		if err := tx.Create(redirect).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrCodeExists
			}
			return apperrors.NewStorageError("failed to create redirect", err)
		}
		return nil
	})
}

func (s *GormStore) DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	deleted, err := s.GetRedirect(ctx, customerID, code)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("customer_id = ? AND code = ?", customerID, code).
		Delete(&model.Redirect{}).Error
	if err != nil {
		return nil, apperrors.NewStorageError("failed to delete redirect", err)
	}

	return deleted, nil
}

func (s *GormStore) IncrementVisit(ctx context.Context, customerID, code string) error {
	// Атомарный UPDATE на стороне базы, никаких read-then-write
	result := s.db.WithContext(ctx).
		Model(&model.Redirect{}).
		Where("customer_id = ? AND code = ?", customerID, code).
		Updates(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"updated_at": nowUTC(),
		})
	if result.Error != nil {
		return apperrors.NewStorageError("failed to increment visit count", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrRedirectNotFound
	}
	return nil
}

func (s *GormStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{}

	if err := s.db.WithContext(ctx).Model(&model.Customer{}).Count(&stats.Customers).Error; err != nil {
		return nil, apperrors.NewStorageError("failed to count customers", err)
	}

	if err := s.db.WithContext(ctx).Model(&model.Redirect{}).Count(&stats.Redirects).Error; err != nil {
		return nil, apperrors.NewStorageError("failed to count redirects", err)
	}

	var visits *int64
	if err := s.db.WithContext(ctx).Model(&model.Redirect{}).
		Select("SUM(count)").Scan(&visits).Error; err != nil {
		return nil, apperrors.NewStorageError("failed to sum visits", err)
	}
	if visits != nil {
		stats.Visits = *visits
	}

	return stats, nil
}

func (s *GormStore) HealthCheck(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
