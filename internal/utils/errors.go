package utils

import "errors"

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	// The job request is no longer accepting estimates or selections.
	// Distinct from not_found so clients can render "someone else already
	// took this job" instead of a generic 404.
	ErrJobClosed = errors.New("job_closed")

	// The operation is illegal for the job's current lifecycle status
	// (e.g. starting a job that was never assigned).
	ErrWrongStatus = errors.New("wrong_status")

	// The worker already has an estimate on this job request.
	ErrDuplicateEstimate = errors.New("estimate_already_submitted")

	// Caller does not own the job request.
	ErrNotJobOwner = errors.New("not_job_owner")

	// Caller is not the worker assigned to the job request.
	ErrNotAssignedWorker = errors.New("not_assigned_worker")

	// Worker is unverified, unavailable, or outside the job's category.
	ErrWorkerIneligible = errors.New("worker_ineligible")

	// No pending estimate exists for the chosen worker on this job.
	ErrEstimateNotFound = errors.New("estimate_not_found")

	// Caller's account row is missing or deactivated.
	ErrAccountInactive = errors.New("account_inactive")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")

	ErrNoRowsUpdated = errors.New("no_rows_updated")
)

// RowVersionConflictError carries the current row so clients can refresh
// without a second round trip.
type RowVersionConflictError struct {
	Current any
}

func NewRowVersionConflictError(current any) *RowVersionConflictError {
	return &RowVersionConflictError{Current: current}
}

func (e *RowVersionConflictError) Error() string {
	return ErrRowVersionConflict.Error()
}

