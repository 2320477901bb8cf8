package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

func createReq(env *testEnv) *dtos.CreateJobRequestRequest {
	return &dtos.CreateJobRequestRequest{
		CategoryID:  env.categoryID,
		Description: "Ceiling fan stopped working in the bedroom",
		Address:     "Flat 4B, House 7, Banani",
		Latitude:    23.7937,
		Longitude:   90.4066,
		ImageURLs:   []string{"https://cdn.example.com/fan.jpg"},
	}
}

func TestCreateJobRequestCountsOnlineAndTotal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	w1 := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	// Busy and unverified workers never count.
	env.addWorker(models.AvailabilityBusy, models.VerificationVerified)
	env.addWorker(models.AvailabilityAvailable, models.VerificationPending)

	// Only one of the three dispatchable workers is connected.
	env.rt.online[env.categoryID] = []uuid.UUID{w1.ID}

	resp, err := env.jobs.CreateJobRequest(ctx, env.customer.ID, createReq(env))
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 3, resp.WorkersNotifiedTotal)
	assert.Equal(t, 1, resp.WorkersOnline)
	assert.Equal(t, string(models.JobStatusAwaitingEstimates), resp.Job.Status)

	broadcasts := env.rt.broadcastsOf(realtime.EventJobBroadcast)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, env.categoryID, broadcasts[0].categoryID)

	// All three dispatchable workers got a durable record.
	env.store.mu.Lock()
	assert.Len(t, env.store.notifs, 3)
	env.store.mu.Unlock()
}

func TestCreateJobRequestWithNoWorkers(t *testing.T) {
	env := newTestEnv()

	resp, err := env.jobs.CreateJobRequest(context.Background(), env.customer.ID, createReq(env))
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Zero(t, resp.WorkersNotifiedTotal)
	assert.Zero(t, resp.WorkersOnline)
}

func TestCreateJobRequestInactiveCustomer(t *testing.T) {
	env := newTestEnv()
	env.customer.IsActive = false

	_, err := env.jobs.CreateJobRequest(context.Background(), env.customer.ID, createReq(env))
	assert.ErrorIs(t, err, utils.ErrAccountInactive)
}

func TestSubmitEstimatePushesToCustomer(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	est, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{
		JobRequestID: job.ID,
		Price:        1500,
		Note:         utils.Ptr("Can be there within the hour"),
	})
	require.NoError(t, err)
	require.NotNil(t, est)
	assert.Equal(t, string(models.EstimateStatusPending), est.Status)
	assert.Equal(t, worker.DisplayName(), est.WorkerName)

	frames := env.rt.sentTo(env.customer.ID.String(), realtime.EventNewEstimate)
	assert.Len(t, frames, 1)
}

func TestSubmitEstimateRejectsDuplicate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 1500})
	require.NoError(t, err)

	_, err = env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 1200})
	assert.ErrorIs(t, err, utils.ErrDuplicateEstimate)
}

func TestSubmitEstimateOnClosedJob(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	env.store.mu.Lock()
	env.store.jobs[job.ID].Status = models.JobStatusCancelled
	env.store.mu.Unlock()

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 1500})
	assert.ErrorIs(t, err, utils.ErrJobClosed)
}

func TestSubmitEstimateIneligibleWorker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.job(t)

	busy := env.addWorker(models.AvailabilityBusy, models.VerificationVerified)
	_, err := env.jobs.SubmitEstimate(ctx, busy.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 900})
	assert.ErrorIs(t, err, utils.ErrWorkerIneligible)

	unverified := env.addWorker(models.AvailabilityAvailable, models.VerificationPending)
	_, err = env.jobs.SubmitEstimate(ctx, unverified.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 900})
	assert.ErrorIs(t, err, utils.ErrWorkerIneligible)

	otherCategory := uuid.New()
	outsider := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	env.store.mu.Lock()
	env.store.workers[outsider.ID].CategoryID = &otherCategory
	env.store.mu.Unlock()
	_, err = env.jobs.SubmitEstimate(ctx, outsider.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 900})
	assert.ErrorIs(t, err, utils.ErrWorkerIneligible)
}

func TestSubmitEstimateUnknownJob(t *testing.T) {
	env := newTestEnv()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)

	est, err := env.jobs.SubmitEstimate(context.Background(), worker.ID, &dtos.SubmitEstimateRequest{
		JobRequestID: uuid.New(),
		Price:        1000,
	})
	require.NoError(t, err)
	assert.Nil(t, est)
}

func TestListEstimatesOwnerOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 700})
	require.NoError(t, err)

	resp, err := env.jobs.ListEstimates(ctx, env.customer.ID, job.ID)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 1, resp.Total)

	_, err = env.jobs.ListEstimates(ctx, uuid.New(), job.ID)
	assert.ErrorIs(t, err, utils.ErrNotJobOwner)
}

func TestSelectWorkerAssignsAtomically(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	winner := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	loser := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, winner.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 2000})
	require.NoError(t, err)
	_, err = env.jobs.SubmitEstimate(ctx, loser.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 1800})
	require.NoError(t, err)

	resp, err := env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{
		JobRequestID: job.ID,
		WorkerID:     winner.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, string(models.JobStatusAssigned), resp.Updated.Status)
	require.NotNil(t, resp.Updated.AssignedWorkerID)
	assert.Equal(t, winner.ID, *resp.Updated.AssignedWorkerID)
	assert.Equal(t, string(models.EstimateStatusAccepted), resp.Accepted.Status)
	assert.Equal(t, winner.PhoneNumber, resp.Worker.PhoneNumber)

	env.store.mu.Lock()
	for _, e := range env.store.estimates {
		if e.WorkerID == loser.ID {
			assert.Equal(t, models.EstimateStatusRejected, e.Status)
		}
	}
	assert.Equal(t, models.AvailabilityBusy, env.store.workers[winner.ID].Availability)
	env.store.mu.Unlock()

	assert.True(t, env.presence.reevaluated(winner.ID))
	assert.Len(t, env.rt.sentTo(winner.ID.String(), realtime.EventWorkerSelected), 1)
	assert.Len(t, env.rt.sentTo(env.customer.ID.String(), realtime.EventWorkerSelected), 1)
	assert.Len(t, env.rt.broadcastsOf(realtime.EventJobClosed), 1)
}

func TestSelectWorkerRequiresOwnership(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 500})
	require.NoError(t, err)

	_, err = env.jobs.SelectWorker(ctx, uuid.New(), &dtos.SelectWorkerRequest{
		JobRequestID: job.ID,
		WorkerID:     worker.ID,
	})
	assert.ErrorIs(t, err, utils.ErrNotJobOwner)
}

func TestSelectWorkerWithoutPendingEstimate(t *testing.T) {
	env := newTestEnv()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SelectWorker(context.Background(), env.customer.ID, &dtos.SelectWorkerRequest{
		JobRequestID: job.ID,
		WorkerID:     worker.ID,
	})
	assert.ErrorIs(t, err, utils.ErrEstimateNotFound)
}

func TestSelectWorkerTwiceFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	first := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	second := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, first.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 1000})
	require.NoError(t, err)
	_, err = env.jobs.SubmitEstimate(ctx, second.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 1100})
	require.NoError(t, err)

	_, err = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{JobRequestID: job.ID, WorkerID: first.ID})
	require.NoError(t, err)

	_, err = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{JobRequestID: job.ID, WorkerID: second.ID})
	assert.ErrorIs(t, err, utils.ErrJobClosed)
}

func TestConcurrentSelectionSingleWinner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	b := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, a.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 800})
	require.NoError(t, err)
	_, err = env.jobs.SubmitEstimate(ctx, b.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 850})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, workerID := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, workerID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{
				JobRequestID: job.ID,
				WorkerID:     workerID,
			})
		}(i, workerID)
	}
	wg.Wait()

	successes := 0
	for _, e := range errs {
		if e == nil {
			successes++
		}
	}
	require.Equal(t, 1, successes, "exactly one selection must win")

	env.store.mu.Lock()
	stored := env.store.jobs[job.ID]
	assert.Equal(t, models.JobStatusAssigned, stored.Status)
	require.NotNil(t, stored.AssignedWorkerID)
	busy := env.store.workers[*stored.AssignedWorkerID]
	assert.Equal(t, models.AvailabilityBusy, busy.Availability)
	env.store.mu.Unlock()
}

func TestCancelFreesAssignedWorker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 600})
	require.NoError(t, err)
	_, err = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{JobRequestID: job.ID, WorkerID: worker.ID})
	require.NoError(t, err)

	resp, err := env.jobs.CancelJobRequest(ctx, env.customer.ID, job.ID)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, string(models.JobStatusCancelled), resp.Updated.Status)

	env.store.mu.Lock()
	assert.Equal(t, models.AvailabilityAvailable, env.store.workers[worker.ID].Availability)
	env.store.mu.Unlock()

	assert.True(t, env.presence.reevaluated(worker.ID))
	assert.Len(t, env.rt.sentTo(worker.ID.String(), realtime.EventJobClosed), 1)
}

func TestCancelOpenJobBroadcastsClosure(t *testing.T) {
	env := newTestEnv()
	job := env.job(t)

	resp, err := env.jobs.CancelJobRequest(context.Background(), env.customer.ID, job.ID)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Len(t, env.rt.broadcastsOf(realtime.EventJobClosed), 1)
}

func TestCancelTerminalJobFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.job(t)

	_, err := env.jobs.CancelJobRequest(ctx, env.customer.ID, job.ID)
	require.NoError(t, err)

	_, err = env.jobs.CancelJobRequest(ctx, env.customer.ID, job.ID)
	assert.ErrorIs(t, err, utils.ErrJobClosed)
}

func TestStartJobRequiresAssignedWorker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	stranger := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 950})
	require.NoError(t, err)
	_, err = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{JobRequestID: job.ID, WorkerID: worker.ID})
	require.NoError(t, err)

	_, err = env.jobs.StartJob(ctx, stranger.ID, job.ID)
	assert.ErrorIs(t, err, utils.ErrNotAssignedWorker)

	resp, err := env.jobs.StartJob(ctx, worker.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.JobStatusInProgress), resp.Updated.Status)
}

func TestCompleteJobFreesWorker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 950})
	require.NoError(t, err)
	_, err = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{JobRequestID: job.ID, WorkerID: worker.ID})
	require.NoError(t, err)
	_, err = env.jobs.StartJob(ctx, worker.ID, job.ID)
	require.NoError(t, err)

	resp, err := env.jobs.CompleteJob(ctx, worker.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.JobStatusCompleted), resp.Updated.Status)

	env.store.mu.Lock()
	assert.Equal(t, models.AvailabilityAvailable, env.store.workers[worker.ID].Availability)
	env.store.mu.Unlock()
	assert.True(t, env.presence.reevaluated(worker.ID))
}

func TestCompleteJobRequiresInProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	worker := env.addWorker(models.AvailabilityAvailable, models.VerificationVerified)
	job := env.job(t)

	_, err := env.jobs.SubmitEstimate(ctx, worker.ID, &dtos.SubmitEstimateRequest{JobRequestID: job.ID, Price: 950})
	require.NoError(t, err)
	_, err = env.jobs.SelectWorker(ctx, env.customer.ID, &dtos.SelectWorkerRequest{JobRequestID: job.ID, WorkerID: worker.ID})
	require.NoError(t, err)

	_, err = env.jobs.CompleteJob(ctx, worker.ID, job.ID)
	assert.ErrorIs(t, err, utils.ErrWrongStatus)
}
