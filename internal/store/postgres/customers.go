package postgres

import (
	"context"
	"errors"

	"fieldops/internal/models"
	"fieldops/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `c.customer_id::text, c.name, c.phone, c.type_of_work,
	c.discussed_amount::float8, c.paid_amount::float8, c.pending_amount::float8,
	c.mode_of_payment, c.created_by::text, c.created_at, c.updated_at`

func scanCustomer(row rowScanner) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.CustomerID, &c.Name, &c.Phone, &c.TypeOfWork,
		&c.DiscussedAmount, &c.PaidAmount, &c.PendingAmount,
		&c.ModeOfPayment, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	customer.Normalize()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO customers AS c (customer_id, name, phone, type_of_work, discussed_amount, paid_amount, pending_amount, mode_of_payment, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+customerColumns,
		uuid.NewString(), customer.Name, customer.Phone, customer.TypeOfWork,
		customer.DiscussedAmount, customer.PaidAmount, customer.PendingAmount,
		customer.ModeOfPayment, customer.CreatedBy)
	created, err := scanCustomer(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Customer{}, store.ErrUserNotFound
		}
		return models.Customer{}, err
	}
	return created, nil
}

func (s *Store) GetCustomer(ctx context.Context, scope store.Scope, customerID string) (models.Customer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers c
		WHERE c.customer_id::text = $1 AND ($2 = '' OR c.created_by::text = $2)
	`, customerID, scope.OwnerID)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, scope store.Scope, filter store.CustomerFilter) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers c
		WHERE ($1 = '' OR c.created_by::text = $1)
		  AND ($2 = '' OR c.name ILIKE '%' || $2 || '%' OR c.phone ILIKE '%' || $2 || '%')
		ORDER BY c.created_at DESC
	`, scope.OwnerID, filter.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (s *Store) UpdateCustomer(ctx context.Context, scope store.Scope, customer models.Customer) (models.Customer, error) {
	customer.Normalize()
	row := s.pool.QueryRow(ctx, `
		UPDATE customers AS c
		SET name = $3, phone = $4, type_of_work = $5,
		    discussed_amount = $6, paid_amount = $7, pending_amount = $8,
		    mode_of_payment = $9, updated_at = NOW()
		WHERE c.customer_id::text = $1 AND ($2 = '' OR c.created_by::text = $2)
		RETURNING `+customerColumns,
		customer.CustomerID, scope.OwnerID, customer.Name, customer.Phone, customer.TypeOfWork,
		customer.DiscussedAmount, customer.PaidAmount, customer.PendingAmount, customer.ModeOfPayment)
	updated, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, scope store.Scope, customerID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM customers
		WHERE customer_id::text = $1 AND ($2 = '' OR created_by::text = $2)
	`, customerID, scope.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCustomerNotFound
	}
	return nil
}
