package repository

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
)

// SQLiteStore - встроенное реляционное хранилище поверх database/sql
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		form_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS redirects (
		code TEXT NOT NULL,
		customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		am_id TEXT NOT NULL,
		empfehlungsgeber TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (code, customer_id)
	);

	CREATE INDEX IF NOT EXISTS idx_redirects_am_id ON redirects(customer_id, am_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.NewStorageError("failed to create schema", err)
	}
	return nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	query := `SELECT id, form_id, created_at FROM customers WHERE id = ?`

	customer := &model.Customer{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.FormID,
		&customer.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrCustomerNotFound
	}

	if err != nil {
		return nil, apperrors.NewStorageError("failed to get customer", err)
	}

	return customer, nil
}

func (s *SQLiteStore) GetCustomerWithRedirects(ctx context.Context, id string) (*model.Customer, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	redirects, err := s.redirectsForCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Redirects = redirects
	return customer, nil
}

func (s *SQLiteStore) redirectsForCustomer(ctx context.Context, customerID string) ([]model.Redirect, error) {
	query := `
	SELECT code, customer_id, am_id, empfehlungsgeber, created_at, updated_at, count
	FROM redirects
	WHERE customer_id = ?
	ORDER BY created_at DESC, code
	`

	rows, err := s.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list redirects", err)
	}
	defer rows.Close()

	redirects := make([]model.Redirect, 0)
	for rows.Next() {
		var r model.Redirect
		if err := rows.Scan(&r.Code, &r.CustomerID, &r.AmID, &r.Empfehlungsgeber, &r.CreatedAt, &r.UpdatedAt, &r.Count); err != nil {
			return nil, apperrors.NewStorageError("failed to scan redirect", err)
		}
		redirects = append(redirects, r)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to iterate redirects", err)
	}

	return redirects, nil
}

func (s *SQLiteStore) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	// INSERT OR IGNORE: при гонке двух конкурентных create выигрывает ровно один
	query := `INSERT OR IGNORE INTO customers (id, form_id, created_at) VALUES (?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query, customer.ID, customer.FormID, customer.CreatedAt)
	if err != nil {
		return apperrors.NewStorageError("failed to create customer", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to create customer", err)
	}

	if affected == 0 {
		return apperrors.ErrCustomerExists
	}
	return nil
}

func (s *SQLiteStore) UpdateCustomer(ctx context.Context, id, formID string) (*model.Customer, error) {
	query := `UPDATE customers SET form_id = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, formID, id)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to update customer", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to update customer", err)
	}

	if affected == 0 {
		return nil, apperrors.ErrCustomerNotFound
	}

	return s.GetCustomerWithRedirects(ctx, id)
}

func (s *SQLiteStore) DeleteCustomer(ctx context.Context, id string) (*model.Customer, error) {
	deleted, err := s.GetCustomerWithRedirects(ctx, id)
	if err != nil {
		return nil, err
	}

	// Редиректы уходят каскадом (FK включены на уровне соединения)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id); err != nil {
		return nil, apperrors.NewStorageError("failed to delete customer", err)
	}

	return deleted, nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	query := `
	SELECT c.id, c.form_id, c.created_at, COUNT(r.code)
	FROM customers c
	LEFT JOIN redirects r ON r.customer_id = c.id
	GROUP BY c.id, c.form_id, c.created_at
	ORDER BY c.created_at DESC, c.id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list customers", err)
	}
	defer rows.Close()

	summaries := make([]model.CustomerSummary, 0)
	for rows.Next() {
		var c model.CustomerSummary
		if err := rows.Scan(&c.ID, &c.FormID, &c.CreatedAt, &c.RedirectCount); err != nil {
			return nil, apperrors.NewStorageError("failed to scan customer", err)
		}
		summaries = append(summaries, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to iterate customers", err)
	}

	return summaries, nil
}

func (s *SQLiteStore) GetRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	query := `
	SELECT code, customer_id, am_id, empfehlungsgeber, created_at, updated_at, count
	FROM redirects
	WHERE customer_id = ? AND code = ?
	`

	return s.scanRedirect(s.db.QueryRowContext(ctx, query, customerID, code))
}

func (s *SQLiteStore) FindRedirectByAmID(ctx context.Context, customerID, amID string) (*model.Redirect, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	query := `
	SELECT code, customer_id, am_id, empfehlungsgeber, created_at, updated_at, count
	FROM redirects
	WHERE customer_id = ? AND am_id = ?
	LIMIT 1
	`

	return s.scanRedirect(s.db.QueryRowContext(ctx, query, customerID, amID))
}

func (s *SQLiteStore) scanRedirect(row *sql.Row) (*model.Redirect, error) {
	r := &model.Redirect{}
	err := row.Scan(&r.Code, &r.CustomerID, &r.AmID, &r.Empfehlungsgeber, &r.CreatedAt, &r.UpdatedAt, &r.Count)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRedirectNotFound
	}

	if err != nil {
		return nil, apperrors.NewStorageError("failed to get redirect", err)
	}

	return r, nil
}

func (s *SQLiteStore) CreateRedirect(ctx context.Context, redirect *model.Redirect) error {
	// Проверки и вставка в одной транзакции, чтобы гонка двух create
	// не пролезла между check и insert
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = ?)`, redirect.CustomerID).Scan(&exists); err != nil {
		return apperrors.NewStorageError("failed to check customer", err)
	}
	if !exists {
		return apperrors.ErrCustomerNotFound
	}

	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM redirects WHERE customer_id = ? AND code = ?)`, redirect.CustomerID, redirect.Code).Scan(&exists); err != nil {
		return apperrors.NewStorageError("failed to check code", err)
	}
	if exists {
		return apperrors.ErrCodeExists
	}

	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM redirects WHERE customer_id = ? AND am_id = ?)`, redirect.CustomerID, redirect.AmID).Scan(&exists); err != nil {
		return apperrors.NewStorageError("failed to check am_id", err)
	}
	if exists {
		return apperrors.ErrAmIDExists
	}

	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM redirects WHERE customer_id = ? AND am_id = ? AND empfehlungsgeber = ?)`, redirect.CustomerID, redirect.AmID, redirect.Empfehlungsgeber).Scan(&exists); err != nil {
		return apperrors.NewStorageError("failed to check combination", err)
	}
	if exists {
		return apperrors.ErrReferrerExists
	}

	query := `
	INSERT INTO redirects (code, customer_id, am_id, empfehlungsgeber, created_at, updated_at, count)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := tx.ExecContext(ctx, query,
		redirect.Code,
		redirect.CustomerID,
		redirect.AmID,
		redirect.Empfehlungsgeber,
		redirect.CreatedAt,
		redirect.UpdatedAt,
		redirect.Count,
	); err != nil {
		return apperrors.NewStorageError("failed to create redirect", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit redirect", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteRedirect(ctx context.Context, customerID, code string) (*model.Redirect, error) {
	deleted, err := s.GetRedirect(ctx, customerID, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM redirects WHERE customer_id = ? AND code = ?`, customerID, code); err != nil {
		return nil, apperrors.NewStorageError("failed to delete redirect", err)
	}

	return deleted, nil
}

func (s *SQLiteStore) IncrementVisit(ctx context.Context, customerID, code string) error {
	// Один UPDATE: инкремент атомарен, read-modify-write из приложения запрещен
	query := `
	UPDATE redirects
	SET count = count + 1, updated_at = ?
	WHERE customer_id = ? AND code = ?
	`

	result, err := s.db.ExecContext(ctx, query, nowUTC(), customerID, code)
	if err != nil {
		return apperrors.NewStorageError("failed to increment visit count", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to increment visit count", err)
	}

	if affected == 0 {
		return apperrors.ErrRedirectNotFound
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	query := `
	SELECT
		(SELECT COUNT(*) FROM customers),
		(SELECT COUNT(*) FROM redirects),
		(SELECT COALESCE(SUM(count), 0) FROM redirects)
	`

	stats := &model.Stats{}
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.Customers, &stats.Redirects, &stats.Visits); err != nil {
		return nil, apperrors.NewStorageError("failed to get stats", err)
	}

	return stats, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
