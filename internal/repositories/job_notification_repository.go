package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
)

type JobNotificationRepository interface {
	CreateBatch(ctx context.Context, notifs []*models.JobNotification) error
	ListUnseenByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.JobNotification, error)
	MarkSeen(ctx context.Context, workerID uuid.UUID, ids []uuid.UUID) (int64, error)
	DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobNotificationRepo struct {
	db DB
}

func NewJobNotificationRepository(db DB) JobNotificationRepository {
	return &jobNotificationRepo{db: db}
}

func (r *jobNotificationRepo) CreateBatch(ctx context.Context, notifs []*models.JobNotification) error {
	if len(notifs) == 0 {
		return nil
	}
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

	for _, n := range notifs {
		_, err = tx.Exec(ctx, `
            INSERT INTO job_notifications (
                id, job_request_id, worker_id, category_id, seen, created_at
            ) VALUES (
                $1,$2,$3,$4,FALSE,NOW()
            )
            ON CONFLICT (job_request_id, worker_id) DO NOTHING
        `, n.ID, n.JobRequestID, n.WorkerID, n.CategoryID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *jobNotificationRepo) ListUnseenByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.JobNotification, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, job_request_id, worker_id, category_id, seen, created_at
        FROM job_notifications
        WHERE worker_id=$1 AND seen=FALSE
        ORDER BY created_at DESC
    `, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.JobNotification
	for rows.Next() {
		var n models.JobNotification
		if err := rows.Scan(
			&n.ID,
			&n.JobRequestID,
			&n.WorkerID,
			&n.CategoryID,
			&n.Seen,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *jobNotificationRepo) MarkSeen(ctx context.Context, workerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
        UPDATE job_notifications
        SET seen=TRUE
        WHERE worker_id=$1 AND id = ANY($2)
    `, workerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *jobNotificationRepo) DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM job_notifications
        WHERE seen=TRUE AND created_at < $1
    `, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
