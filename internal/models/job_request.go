package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatusType string

const (
	JobStatusAwaitingEstimates JobStatusType = "AWAITING_ESTIMATES"
	JobStatusAssigned          JobStatusType = "ASSIGNED"
	JobStatusInProgress        JobStatusType = "IN_PROGRESS"
	JobStatusCompleted         JobStatusType = "COMPLETED"
	JobStatusCancelled         JobStatusType = "CANCELLED"
)

// legalTransitions is the full lifecycle: AWAITING_ESTIMATES → ASSIGNED →
// IN_PROGRESS → COMPLETED, with CANCELLED reachable from any non-terminal
// status. Every mutating repository operation re-checks the current status
// inside its transaction rather than trusting a value read earlier.
var legalTransitions = map[JobStatusType][]JobStatusType{
	JobStatusAwaitingEstimates: {JobStatusAssigned, JobStatusCancelled},
	JobStatusAssigned:          {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress:        {JobStatusCompleted, JobStatusCancelled},
}

func (s JobStatusType) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

func (s JobStatusType) CanTransitionTo(next JobStatusType) bool {
	for _, t := range legalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// JobRequest is a customer's instant call-worker broadcast. Exactly one
// worker may ever be assigned; until then AssignedWorkerID stays nil.
type JobRequest struct {
	Versioned

	ID               uuid.UUID     `json:"id"`
	CustomerID       uuid.UUID     `json:"customer_id"`
	CategoryID       uuid.UUID     `json:"category_id"`
	Description      string        `json:"description"`
	Address          string        `json:"address"`
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	ImageURLs        []string      `json:"image_urls,omitempty"`
	Status           JobStatusType `json:"status"`
	AssignedWorkerID *uuid.UUID    `json:"assigned_worker_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *JobRequest) GetID() string {
	return j.ID.String()
}
