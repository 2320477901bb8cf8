package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
)

type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type customerRepo struct {
	db DB
}

func NewCustomerRepository(db DB) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, email, phone_number, first_name, last_name, is_active, created_at
        FROM customers
        WHERE id=$1
    `, id)

	var c models.Customer
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.PhoneNumber,
		&c.FirstName,
		&c.LastName,
		&c.IsActive,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
