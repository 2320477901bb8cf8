package models

import (
	"time"

	"github.com/google/uuid"
)

type AvailabilityStatusType string

const (
	AvailabilityAvailable AvailabilityStatusType = "AVAILABLE"
	AvailabilityBusy      AvailabilityStatusType = "BUSY"
	AvailabilityOffline   AvailabilityStatusType = "OFFLINE"
)

type VerificationStatusType string

const (
	VerificationPending  VerificationStatusType = "PENDING"
	VerificationVerified VerificationStatusType = "VERIFIED"
	VerificationRejected VerificationStatusType = "REJECTED"
)

type Worker struct {
	Versioned

	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`

	Availability AvailabilityStatusType `json:"availability"`
	Verification VerificationStatusType `json:"verification"`

	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Worker) GetID() string {
	return w.ID.String()
}

// Dispatchable reports whether the worker may enter a category partition of
// the presence registry: verified, available, and categorized. Computed
// fresh from the durable row every time, never cached across events.
func (w *Worker) Dispatchable() bool {
	return w.Verification == VerificationVerified &&
		w.Availability == AvailabilityAvailable &&
		w.CategoryID != nil
}

func (w *Worker) DisplayName() string {
	return w.FirstName + " " + w.LastName
}
