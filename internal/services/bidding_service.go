package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

/*
SubmitEstimate records one worker's bid on an open job request and pushes
it to the customer's private channel. Pre-checks give fast, precise
failures; the insert re-checks the job status under a row lock, so a bid
racing a selection or cancellation still loses cleanly with ErrJobClosed.

Returns (nil, nil) when the job request does not exist.
*/
func (s *JobService) SubmitEstimate(ctx context.Context, workerID uuid.UUID, req *dtos.SubmitEstimateRequest) (*dtos.EstimateDTO, error) {
	job, err := s.jobRepo.GetByID(ctx, req.JobRequestID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if job.Status != models.JobStatusAwaitingEstimates {
		return nil, utils.ErrJobClosed
	}

	existing, err := s.estimateRepo.GetByJobAndWorker(ctx, job.ID, workerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrDuplicateEstimate
	}

	worker, err := s.workerRepo.GetByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, fmt.Errorf("authenticated worker %s has no account row", workerID)
	}
	if !worker.Dispatchable() || *worker.CategoryID != job.CategoryID {
		return nil, utils.ErrWorkerIneligible
	}

	est := &models.Estimate{
		ID:           uuid.New(),
		JobRequestID: job.ID,
		WorkerID:     workerID,
		Price:        req.Price,
		Note:         req.Note,
	}
	err = s.estimateRepo.CreateIfJobOpen(ctx, est)
	if errors.Is(err, pgx.ErrNoRows) {
		// Job vanished between the pre-check and the insert.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stored, err := s.estimateRepo.GetByJobAndWorker(ctx, job.ID, workerID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = est
	}

	dto := toEstimateDTO(stored, worker)
	s.rt.SendToIdentity(job.CustomerID.String(), realtime.EventNewEstimate, dto)
	return &dto, nil
}

// ListEstimates returns every estimate on the caller's job request, in
// submission order, with the bidding worker's display data attached.
// Returns (nil, nil) when the job request does not exist.
func (s *JobService) ListEstimates(ctx context.Context, customerID, jobID uuid.UUID) (*dtos.ListEstimatesResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if job.CustomerID != customerID {
		return nil, utils.ErrNotJobOwner
	}

	ests, err := s.estimateRepo.ListByJobRequest(ctx, jobID)
	if err != nil {
		return nil, err
	}

	results := make([]dtos.EstimateDTO, 0, len(ests))
	for _, est := range ests {
		worker, err := s.workerRepo.GetByID(ctx, est.WorkerID)
		if err != nil {
			return nil, err
		}
		results = append(results, toEstimateDTO(est, worker))
	}

	return &dtos.ListEstimatesResponse{Results: results, Total: len(results)}, nil
}
