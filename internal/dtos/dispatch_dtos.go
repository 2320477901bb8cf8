package dtos

import (
	"time"

	"github.com/google/uuid"
)

/*
CreateJobRequestRequest is the payload for POST /api/v1/jobs/request.
A job request carries 1–3 photos of the problem.
*/
type CreateJobRequestRequest struct {
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Description string    `json:"description" validate:"required,min=10,max=2000"`
	Address     string    `json:"address" validate:"required,max=500"`
	Latitude    float64   `json:"latitude" validate:"latitude"`
	Longitude   float64   `json:"longitude" validate:"longitude"`
	ImageURLs   []string  `json:"image_urls" validate:"required,min=1,max=3,dive,url"`
}

type JobRequestDTO struct {
	JobRequestID     uuid.UUID  `json:"job_request_id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	CategoryID       uuid.UUID  `json:"category_id"`
	Description      string     `json:"description"`
	Address          string     `json:"address"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	ImageURLs        []string   `json:"image_urls,omitempty"`
	Status           string     `json:"status"`
	AssignedWorkerID *uuid.UUID `json:"assigned_worker_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

/*
CreateJobRequestResponse reports both notification counts separately: how
many dispatchable workers got a durable notification record, and how many
of them were reached live.
*/
type CreateJobRequestResponse struct {
	Job                  JobRequestDTO `json:"job"`
	WorkersNotifiedTotal int           `json:"workers_notified_total"`
	WorkersOnline        int           `json:"workers_online"`
}

type SubmitEstimateRequest struct {
	JobRequestID uuid.UUID `json:"job_request_id" validate:"required"`
	Price        float64   `json:"price" validate:"required,gt=0"`
	Note         *string   `json:"note,omitempty" validate:"omitempty,max=500"`
}

type EstimateDTO struct {
	EstimateID    uuid.UUID `json:"estimate_id"`
	JobRequestID  uuid.UUID `json:"job_request_id"`
	WorkerID      uuid.UUID `json:"worker_id"`
	WorkerName    string    `json:"worker_name"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
	Price         float64   `json:"price"`
	Note          *string   `json:"note,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListEstimatesResponse is ordered by submission time for display only;
// the customer may pick any estimate regardless of arrival order.
type ListEstimatesResponse struct {
	Results []EstimateDTO `json:"results"`
	Total   int           `json:"total"`
}

type SelectWorkerRequest struct {
	JobRequestID uuid.UUID `json:"job_request_id" validate:"required"`
	WorkerID     uuid.UUID `json:"worker_id" validate:"required"`
}

type WorkerContactDTO struct {
	WorkerID      uuid.UUID `json:"worker_id"`
	Name          string    `json:"name"`
	PhoneNumber   string    `json:"phone_number"`
	Email         string    `json:"email"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
}

type SelectWorkerResponse struct {
	Updated  JobRequestDTO    `json:"updated"`
	Accepted EstimateDTO      `json:"accepted"`
	Worker   WorkerContactDTO `json:"worker"`
}

/*
JobActionRequest is the simple "job_request_id" payload for endpoints like
cancel, start, and complete.
*/
type JobActionRequest struct {
	JobRequestID uuid.UUID `json:"job_request_id" validate:"required"`
}

type JobActionResponse struct {
	Updated JobRequestDTO `json:"updated"`
}

type UpdateAvailabilityRequest struct {
	Availability string `json:"availability" validate:"required,oneof=AVAILABLE BUSY OFFLINE"`
}

type WorkerAvailabilityResponse struct {
	Availability string `json:"availability"`
	Verification string `json:"verification"`
}

type JobNotificationDTO struct {
	NotificationID uuid.UUID `json:"notification_id"`
	JobRequestID   uuid.UUID `json:"job_request_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListNotificationsResponse struct {
	Results []JobNotificationDTO `json:"results"`
	Total   int                  `json:"total"`
}

type MarkNotificationsSeenRequest struct {
	NotificationIDs []uuid.UUID `json:"notification_ids" validate:"required,min=1"`
}

type MarkNotificationsSeenResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

// ----------------------------------------------------------------
// Realtime payloads
// ----------------------------------------------------------------

// JobBroadcastPayload is pushed to every connected worker in the job's
// category partition when a customer creates a job request.
type JobBroadcastPayload struct {
	JobRequestID uuid.UUID `json:"job_request_id"`
	CategoryID   uuid.UUID `json:"category_id"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
	CustomerName string    `json:"customer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkerSelectedPayload goes to the winner's private channel, and (with
// the worker's contact filled in) to the customer's private channel.
type WorkerSelectedPayload struct {
	JobRequestID  uuid.UUID         `json:"job_request_id"`
	EstimateID    uuid.UUID         `json:"estimate_id"`
	Price         float64           `json:"price"`
	CustomerName  string            `json:"customer_name,omitempty"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	Worker        *WorkerContactDTO `json:"worker,omitempty"`
}

// JobClosedPayload tells category members to retract any in-progress bid
// UI for the job.
type JobClosedPayload struct {
	JobRequestID uuid.UUID `json:"job_request_id"`
	Reason       string    `json:"reason"`
}
