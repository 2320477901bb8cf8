package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

type WorkerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)

	// ListDispatchableByCategory returns every verified, available worker
	// in the category, connected or not. Used for durable job
	// notifications so offline workers discover broadcasts later.
	ListDispatchableByCategory(ctx context.Context, categoryID uuid.UUID) ([]*models.Worker, error)

	SetAvailabilityAtomic(ctx context.Context, workerID uuid.UUID, status models.AvailabilityStatusType, expectedVersion int64) (*models.Worker, error)
}

type workerRepo struct {
	db DB
}

func NewWorkerRepository(db DB) WorkerRepository {
	return &workerRepo{db: db}
}

func baseSelectWorker() string {
	return `
        SELECT
            id, email, phone_number, first_name, last_name,
            category_id, availability, verification,
            rating_average, rating_count,
            row_version, created_at, updated_at
        FROM workers
    `
}

func scanWorker(row pgx.Row) (*models.Worker, error) {
	var w models.Worker
	err := row.Scan(
		&w.ID,
		&w.Email,
		&w.PhoneNumber,
		&w.FirstName,
		&w.LastName,
		&w.CategoryID,
		&w.Availability,
		&w.Verification,
		&w.RatingAverage,
		&w.RatingCount,
		&w.RowVersion,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	row := r.db.QueryRow(ctx, baseSelectWorker()+" WHERE id=$1", id)
	w, err := scanWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *workerRepo) ListDispatchableByCategory(ctx context.Context, categoryID uuid.UUID) ([]*models.Worker, error) {
	rows, err := r.db.Query(ctx, baseSelectWorker()+`
        WHERE category_id=$1
          AND verification='VERIFIED'
          AND availability='AVAILABLE'
    `, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *workerRepo) SetAvailabilityAtomic(
	ctx context.Context,
	workerID uuid.UUID,
	status models.AvailabilityStatusType,
	expectedVersion int64,
) (*models.Worker, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	row := tx.QueryRow(ctx, baseSelectWorker()+" WHERE id=$1 FOR UPDATE", workerID)
	w, err := scanWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if w.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return w, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE workers
        SET availability=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, status, workerID)
	if err != nil {
		return nil, err
	}

	newRow := tx.QueryRow(ctx, baseSelectWorker()+" WHERE id=$1", workerID)
	return scanWorker(newRow)
}
