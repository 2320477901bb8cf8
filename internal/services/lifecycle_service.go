package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

/*
CancelJobRequest moves the caller's job to CANCELLED from any non-terminal
status, rejects whatever pending estimates remain, and frees the assigned
worker if one exists. Category members only get the job_closed retraction
when the job was still collecting estimates; after an assignment they
already saw it close.

Returns (nil, nil) when the job request does not exist.
*/
func (s *JobService) CancelJobRequest(ctx context.Context, customerID, jobID uuid.UUID) (*dtos.JobActionResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	updated, err := s.jobRepo.CancelAtomic(ctx, jobID, customerID, job.RowVersion)
	if errors.Is(err, utils.ErrRowVersionConflict) && updated != nil {
		return nil, utils.NewRowVersionConflictError(toJobRequestDTO(updated))
	}
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}

	closed := dtos.JobClosedPayload{JobRequestID: updated.ID, Reason: "cancelled"}
	if job.Status == models.JobStatusAwaitingEstimates {
		s.rt.BroadcastToCategory(updated.CategoryID, realtime.EventJobClosed, closed)
	}
	if job.AssignedWorkerID != nil {
		// The freed worker is AVAILABLE again and should re-enter their
		// category partition if still connected.
		s.rt.SendToIdentity(job.AssignedWorkerID.String(), realtime.EventJobClosed, closed)
		s.presence.ReevaluateWorker(ctx, *job.AssignedWorkerID)
	}

	return &dtos.JobActionResponse{Updated: toJobRequestDTO(updated)}, nil
}

// StartJob lets the assigned worker flip the job to IN_PROGRESS on arrival.
// Returns (nil, nil) when the job request does not exist.
func (s *JobService) StartJob(ctx context.Context, workerID, jobID uuid.UUID) (*dtos.JobActionResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	updated, err := s.jobRepo.UpdateStatusToInProgress(ctx, jobID, workerID, job.RowVersion)
	if errors.Is(err, utils.ErrRowVersionConflict) && updated != nil {
		return nil, utils.NewRowVersionConflictError(toJobRequestDTO(updated))
	}
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}
	return &dtos.JobActionResponse{Updated: toJobRequestDTO(updated)}, nil
}

/*
CompleteJob closes the loop: the assigned worker marks the IN_PROGRESS job
COMPLETED, which frees them for new dispatches in the same transaction.
Returns (nil, nil) when the job request does not exist.
*/
func (s *JobService) CompleteJob(ctx context.Context, workerID, jobID uuid.UUID) (*dtos.JobActionResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	updated, err := s.jobRepo.UpdateStatusToCompleted(ctx, jobID, workerID, job.RowVersion)
	if errors.Is(err, utils.ErrRowVersionConflict) && updated != nil {
		return nil, utils.NewRowVersionConflictError(toJobRequestDTO(updated))
	}
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}

	// Back to AVAILABLE; re-enter the category partition if connected.
	s.presence.ReevaluateWorker(ctx, workerID)

	customer, cErr := s.customerRepo.GetByID(ctx, updated.CustomerID)
	if cErr != nil {
		utils.Logger.WithError(cErr).Errorf("Could not load customer %s for completion email", updated.CustomerID)
	} else {
		go s.notifier.JobCompleted(customer, updated)
	}

	return &dtos.JobActionResponse{Updated: toJobRequestDTO(updated)}, nil
}
