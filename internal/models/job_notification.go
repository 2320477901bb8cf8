package models

import (
	"time"

	"github.com/google/uuid"
)

// JobNotification is the durable record written for every dispatchable
// worker in a category when a job request is broadcast. Workers who missed
// the live push discover the job through these rows on next login.
type JobNotification struct {
	ID           uuid.UUID `json:"id"`
	JobRequestID uuid.UUID `json:"job_request_id"`
	WorkerID     uuid.UUID `json:"worker_id"`
	CategoryID   uuid.UUID `json:"category_id"`
	Seen         bool      `json:"seen"`

	CreatedAt time.Time `json:"created_at"`
}
