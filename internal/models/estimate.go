package models

import (
	"time"

	"github.com/google/uuid"
)

type EstimateStatusType string

const (
	EstimateStatusPending  EstimateStatusType = "PENDING"
	EstimateStatusAccepted EstimateStatusType = "ACCEPTED"
	EstimateStatusRejected EstimateStatusType = "REJECTED"
)

// Estimate is a worker's price bid against an open job request. At most one
// estimate exists per (job_request_id, worker_id) pair, and at most one
// estimate per job request ever reaches ACCEPTED.
type Estimate struct {
	ID           uuid.UUID          `json:"id"`
	JobRequestID uuid.UUID          `json:"job_request_id"`
	WorkerID     uuid.UUID          `json:"worker_id"`
	Price        float64            `json:"price"`
	Note         *string            `json:"note,omitempty"`
	Status       EstimateStatusType `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

func (e *Estimate) GetID() string {
	return e.ID.String()
}
