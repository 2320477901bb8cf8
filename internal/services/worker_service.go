package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/repositories"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

// WorkerService covers the worker-facing operations that are not about a
// single job request: availability and the durable notification inbox.
type WorkerService struct {
	workerRepo repositories.WorkerRepository
	notifRepo  repositories.JobNotificationRepository
	presence   PresenceReevaluator
}

func NewWorkerService(
	workerRepo repositories.WorkerRepository,
	notifRepo repositories.JobNotificationRepository,
	presence PresenceReevaluator,
) *WorkerService {
	return &WorkerService{
		workerRepo: workerRepo,
		notifRepo:  notifRepo,
		presence:   presence,
	}
}

/*
UpdateAvailability is the HTTP counterpart of the availability_changed
realtime event. The durable row is updated first, then the presence rule
is re-applied to every live connection of the worker, so registry
membership always follows the row and never the request payload.

Returns (nil, nil) when the worker does not exist.
*/
func (s *WorkerService) UpdateAvailability(ctx context.Context, workerID uuid.UUID, req *dtos.UpdateAvailabilityRequest) (*dtos.WorkerAvailabilityResponse, error) {
	worker, err := s.workerRepo.GetByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, nil
	}

	requested := models.AvailabilityStatusType(req.Availability)
	if worker.Availability != requested {
		worker, err = s.workerRepo.SetAvailabilityAtomic(ctx, workerID, requested, worker.RowVersion)
		if errors.Is(err, utils.ErrRowVersionConflict) && worker != nil {
			return nil, utils.NewRowVersionConflictError(dtos.WorkerAvailabilityResponse{
				Availability: string(worker.Availability),
				Verification: string(worker.Verification),
			})
		}
		if err != nil {
			return nil, err
		}
		if worker == nil {
			return nil, nil
		}
	}

	s.presence.ReevaluateWorker(ctx, workerID)

	return &dtos.WorkerAvailabilityResponse{
		Availability: string(worker.Availability),
		Verification: string(worker.Verification),
	}, nil
}

// ListNotifications returns the worker's unseen job notifications, newest
// first. This is how an offline worker catches up on broadcasts they missed.
func (s *WorkerService) ListNotifications(ctx context.Context, workerID uuid.UUID) (*dtos.ListNotificationsResponse, error) {
	notifs, err := s.notifRepo.ListUnseenByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	results := make([]dtos.JobNotificationDTO, 0, len(notifs))
	for _, n := range notifs {
		results = append(results, dtos.JobNotificationDTO{
			NotificationID: n.ID,
			JobRequestID:   n.JobRequestID,
			CategoryID:     n.CategoryID,
			CreatedAt:      n.CreatedAt,
		})
	}
	return &dtos.ListNotificationsResponse{Results: results, Total: len(results)}, nil
}

// MarkNotificationsSeen acknowledges notifications. Only rows owned by the
// caller are touched; foreign IDs in the list are silently skipped.
func (s *WorkerService) MarkNotificationsSeen(ctx context.Context, workerID uuid.UUID, req *dtos.MarkNotificationsSeenRequest) (*dtos.MarkNotificationsSeenResponse, error) {
	count, err := s.notifRepo.MarkSeen(ctx, workerID, req.NotificationIDs)
	if err != nil {
		return nil, err
	}
	return &dtos.MarkNotificationsSeenResponse{UpdatedCount: count}, nil
}

// PurgeSeenNotifications deletes seen notifications older than the retention
// window. Called from the scheduler, not from any request path.
func (s *WorkerService) PurgeSeenNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	return s.notifRepo.DeleteSeenBefore(ctx, time.Now().Add(-retention))
}
