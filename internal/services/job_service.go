package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/repositories"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

// RealtimePublisher is the hub surface the services push frames through.
// Delivery is best effort; return values are counts, never errors.
type RealtimePublisher interface {
	SendToIdentity(identity string, kind realtime.EventKind, payload any) int
	BroadcastToCategory(categoryID uuid.UUID, kind realtime.EventKind, payload any) int
	OnlineWorkers(categoryID uuid.UUID) []uuid.UUID
}

// PresenceReevaluator re-applies the presence rule against the durable
// worker row after something may have changed it.
type PresenceReevaluator interface {
	ReevaluateWorker(ctx context.Context, workerID uuid.UUID) *models.Worker
}

// JobService implements the dispatch, bidding, assignment, and lifecycle
// operations on job requests.
type JobService struct {
	jobRepo      repositories.JobRequestRepository
	estimateRepo repositories.EstimateRepository
	workerRepo   repositories.WorkerRepository
	customerRepo repositories.CustomerRepository
	notifRepo    repositories.JobNotificationRepository

	rt       RealtimePublisher
	presence PresenceReevaluator
	notifier *Notifier
}

func NewJobService(
	jobRepo repositories.JobRequestRepository,
	estimateRepo repositories.EstimateRepository,
	workerRepo repositories.WorkerRepository,
	customerRepo repositories.CustomerRepository,
	notifRepo repositories.JobNotificationRepository,
	rt RealtimePublisher,
	presence PresenceReevaluator,
	notifier *Notifier,
) *JobService {
	return &JobService{
		jobRepo:      jobRepo,
		estimateRepo: estimateRepo,
		workerRepo:   workerRepo,
		customerRepo: customerRepo,
		notifRepo:    notifRepo,
		rt:           rt,
		presence:     presence,
		notifier:     notifier,
	}
}

/*
CreateJobRequest persists the job, fans it out to the connected workers of
its category partition, and writes a durable notification record for every
dispatchable worker so the offline ones discover it later. The two counts
in the response let the client tell the customer how many workers saw the
request instantly versus in total.

Broadcast and notification failures after the job row is committed are
logged, not returned; the job exists either way.
*/
func (s *JobService) CreateJobRequest(ctx context.Context, customerID uuid.UUID, req *dtos.CreateJobRequestRequest) (*dtos.CreateJobRequestResponse, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil || !customer.IsActive {
		return nil, utils.ErrAccountInactive
	}

	job := &models.JobRequest{
		ID:          uuid.New(),
		CustomerID:  customerID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ImageURLs:   req.ImageURLs,
		Status:      models.JobStatusAwaitingEstimates,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}
	created, err := s.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	online := s.rt.BroadcastToCategory(created.CategoryID, realtime.EventJobBroadcast, dtos.JobBroadcastPayload{
		JobRequestID: created.ID,
		CategoryID:   created.CategoryID,
		Description:  created.Description,
		Address:      created.Address,
		Latitude:     created.Latitude,
		Longitude:    created.Longitude,
		ImageURLs:    created.ImageURLs,
		CustomerName: customer.DisplayName(),
		CreatedAt:    created.CreatedAt,
	})

	workers, err := s.workerRepo.ListDispatchableByCategory(ctx, created.CategoryID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Could not list dispatchable workers for category %s", created.CategoryID)
		workers = nil
	}

	notifs := make([]*models.JobNotification, 0, len(workers))
	for _, w := range workers {
		notifs = append(notifs, &models.JobNotification{
			ID:           uuid.New(),
			JobRequestID: created.ID,
			WorkerID:     w.ID,
			CategoryID:   created.CategoryID,
		})
	}
	if err := s.notifRepo.CreateBatch(ctx, notifs); err != nil {
		utils.Logger.WithError(err).Errorf("Could not record job notifications for job %s", created.ID)
	}

	// Text the dispatchable workers the broadcast did not reach live.
	onlineSet := make(map[uuid.UUID]bool)
	for _, id := range s.rt.OnlineWorkers(created.CategoryID) {
		onlineSet[id] = true
	}
	var offline []*models.Worker
	for _, w := range workers {
		if !onlineSet[w.ID] {
			offline = append(offline, w)
		}
	}
	if len(offline) > 0 {
		go s.notifier.NewJobPosted(offline, created)
	}

	return &dtos.CreateJobRequestResponse{
		Job:                  toJobRequestDTO(created),
		WorkersNotifiedTotal: len(workers),
		WorkersOnline:        online,
	}, nil
}

func toJobRequestDTO(job *models.JobRequest) dtos.JobRequestDTO {
	return dtos.JobRequestDTO{
		JobRequestID:     job.ID,
		CustomerID:       job.CustomerID,
		CategoryID:       job.CategoryID,
		Description:      job.Description,
		Address:          job.Address,
		Latitude:         job.Latitude,
		Longitude:        job.Longitude,
		ImageURLs:        job.ImageURLs,
		Status:           string(job.Status),
		AssignedWorkerID: job.AssignedWorkerID,
		CreatedAt:        job.CreatedAt,
	}
}

func toEstimateDTO(est *models.Estimate, worker *models.Worker) dtos.EstimateDTO {
	dto := dtos.EstimateDTO{
		EstimateID:   est.ID,
		JobRequestID: est.JobRequestID,
		WorkerID:     est.WorkerID,
		Price:        est.Price,
		Note:         est.Note,
		Status:       string(est.Status),
		CreatedAt:    est.CreatedAt,
	}
	if worker != nil {
		dto.WorkerName = worker.DisplayName()
		dto.RatingAverage = worker.RatingAverage
		dto.RatingCount = worker.RatingCount
	}
	return dto
}

func toWorkerContactDTO(worker *models.Worker) dtos.WorkerContactDTO {
	return dtos.WorkerContactDTO{
		WorkerID:      worker.ID,
		Name:          worker.DisplayName(),
		PhoneNumber:   worker.PhoneNumber,
		Email:         worker.Email,
		RatingAverage: worker.RatingAverage,
		RatingCount:   worker.RatingCount,
	}
}
