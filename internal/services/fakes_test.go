package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/realtime"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

// fakeStore is a shared in-memory backing for the fake repositories. One
// mutex guards everything so the "atomic" repository operations really are
// atomic, which the concurrent selection test depends on.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	jobs      map[uuid.UUID]*models.JobRequest
	estimates map[uuid.UUID]*models.Estimate
	workers   map[uuid.UUID]*models.Worker
	customers map[uuid.UUID]*models.Customer
	notifs    map[uuid.UUID]*models.JobNotification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      make(map[uuid.UUID]*models.JobRequest),
		estimates: make(map[uuid.UUID]*models.Estimate),
		workers:   make(map[uuid.UUID]*models.Worker),
		customers: make(map[uuid.UUID]*models.Customer),
		notifs:    make(map[uuid.UUID]*models.JobNotification),
	}
}

// nextTime yields strictly increasing timestamps so created_at ordering is
// deterministic within a test.
func (s *fakeStore) nextTime() time.Time {
	s.seq++
	return time.Unix(0, int64(s.seq)*int64(time.Millisecond))
}

func cloneJob(j *models.JobRequest) *models.JobRequest {
	if j == nil {
		return nil
	}
	out := *j
	out.ImageURLs = append([]string(nil), j.ImageURLs...)
	if j.AssignedWorkerID != nil {
		id := *j.AssignedWorkerID
		out.AssignedWorkerID = &id
	}
	return &out
}

func cloneEstimate(e *models.Estimate) *models.Estimate {
	if e == nil {
		return nil
	}
	out := *e
	if e.Note != nil {
		n := *e.Note
		out.Note = &n
	}
	return &out
}

func cloneWorker(w *models.Worker) *models.Worker {
	if w == nil {
		return nil
	}
	out := *w
	if w.CategoryID != nil {
		id := *w.CategoryID
		out.CategoryID = &id
	}
	return &out
}

// ----------------------------------------------------------------
// Job request repository
// ----------------------------------------------------------------

type fakeJobRepo struct{ store *fakeStore }

func (r *fakeJobRepo) Create(ctx context.Context, job *models.JobRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	j := cloneJob(job)
	j.RowVersion = 1
	j.CreatedAt = r.store.nextTime()
	j.UpdatedAt = j.CreatedAt
	r.store.jobs[j.ID] = j
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return cloneJob(r.store.jobs[id]), nil
}

func (r *fakeJobRepo) SelectWorkerAtomic(ctx context.Context, jobID, customerID, workerID uuid.UUID, expectedVersion int64) (*models.JobRequest, *models.Estimate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job := r.store.jobs[jobID]
	if job == nil {
		return nil, nil, nil
	}
	if job.CustomerID != customerID {
		return cloneJob(job), nil, utils.ErrNotJobOwner
	}
	if job.Status != models.JobStatusAwaitingEstimates {
		return cloneJob(job), nil, utils.ErrJobClosed
	}
	if job.RowVersion != expectedVersion {
		return cloneJob(job), nil, utils.ErrRowVersionConflict
	}

	var chosen *models.Estimate
	for _, e := range r.store.estimates {
		if e.JobRequestID == jobID && e.WorkerID == workerID && e.Status == models.EstimateStatusPending {
			chosen = e
			break
		}
	}
	if chosen == nil {
		return cloneJob(job), nil, utils.ErrEstimateNotFound
	}

	job.Status = models.JobStatusAssigned
	job.AssignedWorkerID = &workerID
	job.RowVersion++
	chosen.Status = models.EstimateStatusAccepted
	for _, e := range r.store.estimates {
		if e.JobRequestID == jobID && e.Status == models.EstimateStatusPending {
			e.Status = models.EstimateStatusRejected
		}
	}
	if w := r.store.workers[workerID]; w != nil {
		w.Availability = models.AvailabilityBusy
		w.RowVersion++
	}
	return cloneJob(job), cloneEstimate(chosen), nil
}

func (r *fakeJobRepo) CancelAtomic(ctx context.Context, jobID, customerID uuid.UUID, expectedVersion int64) (*models.JobRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job := r.store.jobs[jobID]
	if job == nil {
		return nil, nil
	}
	if job.CustomerID != customerID {
		return cloneJob(job), utils.ErrNotJobOwner
	}
	if job.Status.IsTerminal() {
		return cloneJob(job), utils.ErrJobClosed
	}
	if job.RowVersion != expectedVersion {
		return cloneJob(job), utils.ErrRowVersionConflict
	}

	job.Status = models.JobStatusCancelled
	job.RowVersion++
	for _, e := range r.store.estimates {
		if e.JobRequestID == jobID && e.Status == models.EstimateStatusPending {
			e.Status = models.EstimateStatusRejected
		}
	}
	if job.AssignedWorkerID != nil {
		if w := r.store.workers[*job.AssignedWorkerID]; w != nil && w.Availability == models.AvailabilityBusy {
			w.Availability = models.AvailabilityAvailable
			w.RowVersion++
		}
	}
	return cloneJob(job), nil
}

func (r *fakeJobRepo) UpdateStatusToInProgress(ctx context.Context, jobID, workerID uuid.UUID, expectedVersion int64) (*models.JobRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job := r.store.jobs[jobID]
	if job == nil {
		return nil, nil
	}
	if job.AssignedWorkerID == nil || *job.AssignedWorkerID != workerID {
		return cloneJob(job), utils.ErrNotAssignedWorker
	}
	if job.Status != models.JobStatusAssigned {
		return cloneJob(job), utils.ErrWrongStatus
	}
	if job.RowVersion != expectedVersion {
		return cloneJob(job), utils.ErrRowVersionConflict
	}
	job.Status = models.JobStatusInProgress
	job.RowVersion++
	return cloneJob(job), nil
}

func (r *fakeJobRepo) UpdateStatusToCompleted(ctx context.Context, jobID, workerID uuid.UUID, expectedVersion int64) (*models.JobRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job := r.store.jobs[jobID]
	if job == nil {
		return nil, nil
	}
	if job.AssignedWorkerID == nil || *job.AssignedWorkerID != workerID {
		return cloneJob(job), utils.ErrNotAssignedWorker
	}
	if job.Status != models.JobStatusInProgress {
		return cloneJob(job), utils.ErrWrongStatus
	}
	if job.RowVersion != expectedVersion {
		return cloneJob(job), utils.ErrRowVersionConflict
	}
	job.Status = models.JobStatusCompleted
	job.RowVersion++
	if w := r.store.workers[workerID]; w != nil && w.Availability == models.AvailabilityBusy {
		w.Availability = models.AvailabilityAvailable
		w.RowVersion++
	}
	return cloneJob(job), nil
}

// ----------------------------------------------------------------
// Estimate repository
// ----------------------------------------------------------------

type fakeEstimateRepo struct{ store *fakeStore }

func (r *fakeEstimateRepo) CreateIfJobOpen(ctx context.Context, est *models.Estimate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job := r.store.jobs[est.JobRequestID]
	if job == nil {
		return pgx.ErrNoRows
	}
	if job.Status != models.JobStatusAwaitingEstimates {
		return utils.ErrJobClosed
	}
	for _, e := range r.store.estimates {
		if e.JobRequestID == est.JobRequestID && e.WorkerID == est.WorkerID {
			return utils.ErrDuplicateEstimate
		}
	}
	stored := cloneEstimate(est)
	stored.Status = models.EstimateStatusPending
	stored.CreatedAt = r.store.nextTime()
	r.store.estimates[stored.ID] = stored
	est.Status = models.EstimateStatusPending
	return nil
}

func (r *fakeEstimateRepo) GetByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.Estimate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.estimates {
		if e.JobRequestID == jobID && e.WorkerID == workerID {
			return cloneEstimate(e), nil
		}
	}
	return nil, nil
}

func (r *fakeEstimateRepo) ListByJobRequest(ctx context.Context, jobID uuid.UUID) ([]*models.Estimate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Estimate
	for _, e := range r.store.estimates {
		if e.JobRequestID == jobID {
			out = append(out, cloneEstimate(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ----------------------------------------------------------------
// Worker / customer repositories
// ----------------------------------------------------------------

type fakeWorkerRepo struct{ store *fakeStore }

func (r *fakeWorkerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return cloneWorker(r.store.workers[id]), nil
}

func (r *fakeWorkerRepo) ListDispatchableByCategory(ctx context.Context, categoryID uuid.UUID) ([]*models.Worker, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Worker
	for _, w := range r.store.workers {
		if w.CategoryID != nil && *w.CategoryID == categoryID &&
			w.Verification == models.VerificationVerified &&
			w.Availability == models.AvailabilityAvailable {
			out = append(out, cloneWorker(w))
		}
	}
	return out, nil
}

func (r *fakeWorkerRepo) SetAvailabilityAtomic(ctx context.Context, workerID uuid.UUID, status models.AvailabilityStatusType, expectedVersion int64) (*models.Worker, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w := r.store.workers[workerID]
	if w == nil {
		return nil, nil
	}
	if w.RowVersion != expectedVersion {
		return cloneWorker(w), utils.ErrRowVersionConflict
	}
	w.Availability = status
	w.RowVersion++
	return cloneWorker(w), nil
}

type fakeCustomerRepo struct{ store *fakeStore }

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := r.store.customers[id]
	if c == nil {
		return nil, nil
	}
	out := *c
	return &out, nil
}

// ----------------------------------------------------------------
// Notification repository
// ----------------------------------------------------------------

type fakeNotifRepo struct{ store *fakeStore }

func (r *fakeNotifRepo) CreateBatch(ctx context.Context, notifs []*models.JobNotification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
outer:
	for _, n := range notifs {
		for _, existing := range r.store.notifs {
			if existing.JobRequestID == n.JobRequestID && existing.WorkerID == n.WorkerID {
				continue outer
			}
		}
		stored := *n
		stored.CreatedAt = r.store.nextTime()
		r.store.notifs[stored.ID] = &stored
	}
	return nil
}

func (r *fakeNotifRepo) ListUnseenByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.JobNotification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.JobNotification
	for _, n := range r.store.notifs {
		if n.WorkerID == workerID && !n.Seen {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeNotifRepo) MarkSeen(ctx context.Context, workerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, id := range ids {
		if n, ok := r.store.notifs[id]; ok && n.WorkerID == workerID && !n.Seen {
			n.Seen = true
			count++
		}
	}
	return count, nil
}

func (r *fakeNotifRepo) DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for id, n := range r.store.notifs {
		if n.Seen && n.CreatedAt.Before(cutoff) {
			delete(r.store.notifs, id)
			count++
		}
	}
	return count, nil
}

// ----------------------------------------------------------------
// Realtime and presence fakes
// ----------------------------------------------------------------

type sentFrame struct {
	identity string
	kind     realtime.EventKind
	payload  any
}

type categoryBroadcast struct {
	categoryID uuid.UUID
	kind       realtime.EventKind
	payload    any
}

type fakeRealtime struct {
	mu         sync.Mutex
	sent       []sentFrame
	broadcasts []categoryBroadcast

	// online controls which workers count as connected per category.
	online map[uuid.UUID][]uuid.UUID
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{online: make(map[uuid.UUID][]uuid.UUID)}
}

func (f *fakeRealtime) SendToIdentity(identity string, kind realtime.EventKind, payload any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentFrame{identity: identity, kind: kind, payload: payload})
	return 1
}

func (f *fakeRealtime) BroadcastToCategory(categoryID uuid.UUID, kind realtime.EventKind, payload any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, categoryBroadcast{categoryID: categoryID, kind: kind, payload: payload})
	return len(f.online[categoryID])
}

func (f *fakeRealtime) OnlineWorkers(categoryID uuid.UUID) []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.online[categoryID]...)
}

func (f *fakeRealtime) sentTo(identity string, kind realtime.EventKind) []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentFrame
	for _, s := range f.sent {
		if s.identity == identity && s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeRealtime) broadcastsOf(kind realtime.EventKind) []categoryBroadcast {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []categoryBroadcast
	for _, b := range f.broadcasts {
		if b.kind == kind {
			out = append(out, b)
		}
	}
	return out
}

type fakePresence struct {
	mu    sync.Mutex
	store *fakeStore
	calls []uuid.UUID
}

func (f *fakePresence) ReevaluateWorker(ctx context.Context, workerID uuid.UUID) *models.Worker {
	f.mu.Lock()
	f.calls = append(f.calls, workerID)
	f.mu.Unlock()

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return cloneWorker(f.store.workers[workerID])
}

func (f *fakePresence) reevaluated(workerID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.calls {
		if id == workerID {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------
// Test environment
// ----------------------------------------------------------------

type testEnv struct {
	store    *fakeStore
	rt       *fakeRealtime
	presence *fakePresence

	jobs    *JobService
	workers *WorkerService

	customer   *models.Customer
	categoryID uuid.UUID
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	rt := newFakeRealtime()
	pres := &fakePresence{store: store}
	notifier := NewNotifier(nil, nil, "", "", "Shohojogi")

	jobRepo := &fakeJobRepo{store: store}
	estRepo := &fakeEstimateRepo{store: store}
	workerRepo := &fakeWorkerRepo{store: store}
	customerRepo := &fakeCustomerRepo{store: store}
	notifRepo := &fakeNotifRepo{store: store}

	customer := &models.Customer{
		ID:          uuid.New(),
		Email:       "rahim@example.com",
		PhoneNumber: "+8801700000001",
		FirstName:   "Rahim",
		LastName:    "Uddin",
		IsActive:    true,
	}
	store.customers[customer.ID] = customer

	return &testEnv{
		store:    store,
		rt:       rt,
		presence: pres,
		jobs: NewJobService(
			jobRepo, estRepo, workerRepo, customerRepo, notifRepo,
			rt, pres, notifier,
		),
		workers:    NewWorkerService(workerRepo, notifRepo, pres),
		customer:   customer,
		categoryID: uuid.New(),
	}
}

func (env *testEnv) addWorker(availability models.AvailabilityStatusType, verification models.VerificationStatusType) *models.Worker {
	w := &models.Worker{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PhoneNumber:  "+8801800000000",
		FirstName:    "Karim",
		LastName:     "Mia",
		CategoryID:   &env.categoryID,
		Availability: availability,
		Verification: verification,
	}
	w.RowVersion = 1

	env.store.mu.Lock()
	env.store.workers[w.ID] = w
	env.store.mu.Unlock()
	return w
}

func (env *testEnv) job(t interface{ Fatalf(string, ...any) }) *models.JobRequest {
	job := &models.JobRequest{
		ID:          uuid.New(),
		CustomerID:  env.customer.ID,
		CategoryID:  env.categoryID,
		Description: "Kitchen sink is leaking under the cabinet",
		Address:     "House 12, Road 5, Dhanmondi",
		Latitude:    23.7465,
		Longitude:   90.3760,
		ImageURLs:   []string{"https://cdn.example.com/leak.jpg"},
		Status:      models.JobStatusAwaitingEstimates,
	}
	if err := (&fakeJobRepo{store: env.store}).Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	stored, _ := (&fakeJobRepo{store: env.store}).GetByID(context.Background(), job.ID)
	return stored
}
