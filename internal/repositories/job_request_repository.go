package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

type JobRequestRepository interface {
	Create(ctx context.Context, job *models.JobRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error)

	// SelectWorkerAtomic executes the customer's worker selection as one
	// transaction: job → ASSIGNED, chosen estimate → ACCEPTED, sibling
	// PENDING estimates → REJECTED, winner's availability → BUSY.
	SelectWorkerAtomic(ctx context.Context, jobID, customerID, workerID uuid.UUID, expectedVersion int64) (*models.JobRequest, *models.Estimate, error)

	// CancelAtomic moves any non-terminal job to CANCELLED, rejects its
	// pending estimates, and frees the assigned worker if one exists.
	CancelAtomic(ctx context.Context, jobID, customerID uuid.UUID, expectedVersion int64) (*models.JobRequest, error)

	UpdateStatusToInProgress(ctx context.Context, jobID, workerID uuid.UUID, expectedVersion int64) (*models.JobRequest, error)
	UpdateStatusToCompleted(ctx context.Context, jobID, workerID uuid.UUID, expectedVersion int64) (*models.JobRequest, error)
}

type jobRequestRepo struct {
	db DB
}

func NewJobRequestRepository(db DB) JobRequestRepository {
	return &jobRequestRepo{db: db}
}

func baseSelectJobRequest() string {
	return `
        SELECT
            id, customer_id, category_id, description,
            address, latitude, longitude, image_urls,
            status, assigned_worker_id,
            row_version, created_at, updated_at
        FROM job_requests
    `
}

func scanJobRequest(row pgx.Row) (*models.JobRequest, error) {
	var job models.JobRequest
	var images []string
	err := row.Scan(
		&job.ID,
		&job.CustomerID,
		&job.CategoryID,
		&job.Description,
		&job.Address,
		&job.Latitude,
		&job.Longitude,
		&images,
		&job.Status,
		&job.AssignedWorkerID,
		&job.RowVersion,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.ImageURLs = images
	return &job, nil
}

func (r *jobRequestRepo) Create(ctx context.Context, job *models.JobRequest) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO job_requests (
            id, customer_id, category_id, description,
            address, latitude, longitude, image_urls,
            status, created_at, updated_at, row_version
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW(),1
        )
    `,
		job.ID,
		job.CustomerID,
		job.CategoryID,
		job.Description,
		job.Address,
		job.Latitude,
		job.Longitude,
		job.ImageURLs,
		job.Status,
	)
	return err
}

func (r *jobRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	row := r.db.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1", id)
	job, err := scanJobRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

func (r *jobRequestRepo) SelectWorkerAtomic(
	ctx context.Context,
	jobID, customerID, workerID uuid.UUID,
	expectedVersion int64,
) (*models.JobRequest, *models.Estimate, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	row := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1 FOR UPDATE", jobID)
	job, err := scanJobRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if job.CustomerID != customerID {
		err = utils.ErrNotJobOwner
		return job, nil, err
	}
	if job.Status != models.JobStatusAwaitingEstimates {
		err = utils.ErrJobClosed
		return job, nil, err
	}
	if job.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return job, nil, err
	}

	estRow := tx.QueryRow(ctx, baseSelectEstimate()+`
        WHERE job_request_id=$1 AND worker_id=$2 AND status='PENDING'
        FOR UPDATE
    `, jobID, workerID)
	est, err := scanEstimate(estRow)
	if errors.Is(err, pgx.ErrNoRows) {
		err = utils.ErrEstimateNotFound
		return job, nil, err
	}
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE job_requests
        SET status='ASSIGNED',
            assigned_worker_id=$1,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, workerID, jobID)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE estimates SET status='ACCEPTED' WHERE id=$1
    `, est.ID)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE estimates
        SET status='REJECTED'
        WHERE job_request_id=$1 AND status='PENDING'
    `, jobID)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE workers
        SET availability='BUSY', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1
    `, workerID)
	if err != nil {
		return nil, nil, err
	}

	newJobRow := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1", jobID)
	updatedJob, err := scanJobRequest(newJobRow)
	if err != nil {
		return nil, nil, err
	}
	newEstRow := tx.QueryRow(ctx, baseSelectEstimate()+" WHERE id=$1", est.ID)
	updatedEst, err := scanEstimate(newEstRow)
	if err != nil {
		return nil, nil, err
	}
	return updatedJob, updatedEst, nil
}

func (r *jobRequestRepo) CancelAtomic(
	ctx context.Context,
	jobID, customerID uuid.UUID,
	expectedVersion int64,
) (*models.JobRequest, error) {
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

	row := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1 FOR UPDATE", jobID)
	job, err := scanJobRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if job.CustomerID != customerID {
		err = utils.ErrNotJobOwner
		return job, err
	}
	if job.Status.IsTerminal() {
		err = utils.ErrJobClosed
		return job, err
	}
	if job.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return job, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE job_requests
        SET status='CANCELLED', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1
    `, jobID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE estimates
        SET status='REJECTED'
        WHERE job_request_id=$1 AND status='PENDING'
    `, jobID)
	if err != nil {
		return nil, err
	}

	if job.AssignedWorkerID != nil {
		_, err = tx.Exec(ctx, `
            UPDATE workers
            SET availability='AVAILABLE', row_version=row_version+1, updated_at=NOW()
            WHERE id=$1 AND availability='BUSY'
        `, *job.AssignedWorkerID)
		if err != nil {
			return nil, err
		}
	}

	newRow := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1", jobID)
	return scanJobRequest(newRow)
}

func (r *jobRequestRepo) UpdateStatusToInProgress(
	ctx context.Context,
	jobID, workerID uuid.UUID,
	expectedVersion int64,
) (*models.JobRequest, error) {
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

	row := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1 FOR UPDATE", jobID)
	job, err := scanJobRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if job.AssignedWorkerID == nil || *job.AssignedWorkerID != workerID {
		err = utils.ErrNotAssignedWorker
		return job, err
	}
	if job.Status != models.JobStatusAssigned {
		err = utils.ErrWrongStatus
		return job, err
	}
	if job.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return job, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE job_requests
        SET status='IN_PROGRESS', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1
    `, jobID)
	if err != nil {
		return nil, err
	}
	newRow := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1", jobID)
	return scanJobRequest(newRow)
}

func (r *jobRequestRepo) UpdateStatusToCompleted(
	ctx context.Context,
	jobID, workerID uuid.UUID,
	expectedVersion int64,
) (*models.JobRequest, error) {
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

	row := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1 FOR UPDATE", jobID)
	job, err := scanJobRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if job.AssignedWorkerID == nil || *job.AssignedWorkerID != workerID {
		err = utils.ErrNotAssignedWorker
		return job, err
	}
	if job.Status != models.JobStatusInProgress {
		err = utils.ErrWrongStatus
		return job, err
	}
	if job.RowVersion != expectedVersion {
		err = utils.ErrRowVersionConflict
		return job, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE job_requests
        SET status='COMPLETED', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1
    `, jobID)
	if err != nil {
		return nil, err
	}

	// The worker is free for new dispatches again.
	_, err = tx.Exec(ctx, `
        UPDATE workers
        SET availability='AVAILABLE', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1 AND availability='BUSY'
    `, workerID)
	if err != nil {
		return nil, err
	}

	newRow := tx.QueryRow(ctx, baseSelectJobRequest()+" WHERE id=$1", jobID)
	return scanJobRequest(newRow)
}
