package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

/*
SelectWorker executes the customer's choice of a winning estimate. The
repository runs the whole state flip as one transaction under a row lock:
job to ASSIGNED, chosen estimate to ACCEPTED, sibling pending estimates to
REJECTED, winner to BUSY. Two customers racing for the same worker, or a
selection racing a cancellation, resolve to exactly one winner there.

Everything after the commit is best effort: presence eviction for the now
busy worker, private pushes to winner and customer, the category-wide
job_closed retraction, and SMS/email. A failure in any of those is logged
and never unwinds the assignment.

Returns (nil, nil) when the job request does not exist.
*/
func (s *JobService) SelectWorker(ctx context.Context, customerID uuid.UUID, req *dtos.SelectWorkerRequest) (*dtos.SelectWorkerResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, req.JobRequestID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	updated, accepted, err := s.jobRepo.SelectWorkerAtomic(ctx, req.JobRequestID, customerID, req.WorkerID, job.RowVersion)
	if errors.Is(err, utils.ErrRowVersionConflict) && updated != nil {
		return nil, utils.NewRowVersionConflictError(toJobRequestDTO(updated))
	}
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}

	// The winner's durable row is BUSY now; drop them from the category
	// partition before new broadcasts go out.
	s.presence.ReevaluateWorker(ctx, req.WorkerID)

	winner, err := s.workerRepo.GetByID(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("assigned worker %s has no account row", req.WorkerID)
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Could not load customer %s for assignment notifications", customerID)
	}

	contact := toWorkerContactDTO(winner)
	winnerPayload := dtos.WorkerSelectedPayload{
		JobRequestID: updated.ID,
		EstimateID:   accepted.ID,
		Price:        accepted.Price,
	}
	if customer != nil {
		winnerPayload.CustomerName = customer.DisplayName()
		winnerPayload.CustomerPhone = customer.PhoneNumber
	}
	s.rt.SendToIdentity(req.WorkerID.String(), realtime.EventWorkerSelected, winnerPayload)

	// The customer gets the result in the HTTP response; the push covers
	// their other open sessions.
	s.rt.SendToIdentity(customerID.String(), realtime.EventWorkerSelected, dtos.WorkerSelectedPayload{
		JobRequestID: updated.ID,
		EstimateID:   accepted.ID,
		Price:        accepted.Price,
		Worker:       &contact,
	})

	s.rt.BroadcastToCategory(updated.CategoryID, realtime.EventJobClosed, dtos.JobClosedPayload{
		JobRequestID: updated.ID,
		Reason:       "assigned",
	})

	go s.notifier.WorkerSelected(winner, customer, updated, accepted)

	return &dtos.SelectWorkerResponse{
		Updated:  toJobRequestDTO(updated),
		Accepted: toEstimateDTO(accepted, winner),
		Worker:   contact,
	}, nil
}
