package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

type EstimateRepository interface {
	// CreateIfJobOpen inserts the estimate only while the job request is
	// still AWAITING_ESTIMATES. The status is re-read under a row lock so a
	// submission racing a selection fails with ErrJobClosed instead of
	// landing after the winner was chosen. A second estimate by the same
	// worker fails with ErrDuplicateEstimate.
	CreateIfJobOpen(ctx context.Context, est *models.Estimate) error

	GetByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.Estimate, error)
	ListByJobRequest(ctx context.Context, jobID uuid.UUID) ([]*models.Estimate, error)
}

type estimateRepo struct {
	db DB
}

func NewEstimateRepository(db DB) EstimateRepository {
	return &estimateRepo{db: db}
}

func baseSelectEstimate() string {
	return `
        SELECT
            id, job_request_id, worker_id, price, note, status, created_at
        FROM estimates
    `
}

func scanEstimate(row pgx.Row) (*models.Estimate, error) {
	var est models.Estimate
	err := row.Scan(
		&est.ID,
		&est.JobRequestID,
		&est.WorkerID,
		&est.Price,
		&est.Note,
		&est.Status,
		&est.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *estimateRepo) CreateIfJobOpen(ctx context.Context, est *models.Estimate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var status models.JobStatusType
	err = tx.QueryRow(ctx, `
        SELECT status FROM job_requests WHERE id=$1 FOR UPDATE
    `, est.JobRequestID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err != nil {
		return err
	}
	if status != models.JobStatusAwaitingEstimates {
		err = utils.ErrJobClosed
		return err
	}

	tag, execErr := tx.Exec(ctx, `
        INSERT INTO estimates (
            id, job_request_id, worker_id, price, note, status, created_at
        ) VALUES (
            $1,$2,$3,$4,$5,'PENDING',NOW()
        )
        ON CONFLICT (job_request_id, worker_id) DO NOTHING
    `,
		est.ID,
		est.JobRequestID,
		est.WorkerID,
		est.Price,
		est.Note,
	)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() == 0 {
		err = utils.ErrDuplicateEstimate
		return err
	}
	est.Status = models.EstimateStatusPending
	return nil
}

func (r *estimateRepo) GetByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.Estimate, error) {
	row := r.db.QueryRow(ctx, baseSelectEstimate()+`
        WHERE job_request_id=$1 AND worker_id=$2
    `, jobID, workerID)
	est, err := scanEstimate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return est, err
}

func (r *estimateRepo) ListByJobRequest(ctx context.Context, jobID uuid.UUID) ([]*models.Estimate, error) {
	rows, err := r.db.Query(ctx, baseSelectEstimate()+`
        WHERE job_request_id=$1
        ORDER BY created_at
    `, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Estimate
	for rows.Next() {
		est, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, rows.Err()
}
