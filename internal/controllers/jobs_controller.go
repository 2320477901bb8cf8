package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/services"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

type JobsController struct {
	jobService *services.JobService
}

func NewJobsController(js *services.JobService) *JobsController {
	return &JobsController{jobService: js}
}

// ----------------------------------------------------------------
// POST /api/v1/jobs/request  (customer)
// ----------------------------------------------------------------
func (c *JobsController) CreateJobRequestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.CreateJobRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for job request payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.jobService.CreateJobRequest(ctx, customerID, &body)
	if err != nil {
		if errors.Is(err, utils.ErrAccountInactive) {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrAccountInactive.Error(),
				"Your account is not active and cannot post job requests.", nil, err,
			)
			return
		}
		utils.Logger.WithError(err).Error("Create job request error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not create job request", nil, err,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/jobs/estimate  (worker)
// ----------------------------------------------------------------
func (c *JobsController) SubmitEstimateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.SubmitEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for estimate payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	est, err := c.jobService.SubmitEstimate(ctx, workerID, &body)
	if err != nil {
		if errors.Is(err, utils.ErrJobClosed) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrJobClosed.Error(),
				"This job request is no longer accepting estimates", nil, err,
			)
			return
		}
		if errors.Is(err, utils.ErrDuplicateEstimate) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrDuplicateEstimate.Error(),
				"You already sent an estimate for this job request", nil, err,
			)
			return
		}
		if errors.Is(err, utils.ErrWorkerIneligible) {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrWorkerIneligible.Error(),
				"Your account cannot bid on this job request", nil, err,
			)
			return
		}
		utils.Logger.WithError(err).Error("Submit estimate error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not submit estimate", nil, err,
		)
		return
	}
	if est == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Job request not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, est)
}

// ----------------------------------------------------------------
// GET /api/v1/jobs/{jobRequestID}/estimates  (customer)
// ----------------------------------------------------------------
func (c *JobsController) ListEstimatesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, ok := callerID(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(mux.Vars(r)["jobRequestID"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid job request ID", nil, err,
		)
		return
	}

	resp, err := c.jobService.ListEstimates(ctx, customerID, jobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotJobOwner) {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrNotJobOwner.Error(),
				"This job request belongs to another customer", nil, err,
			)
			return
		}
		utils.Logger.WithError(err).Error("List estimates error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not list estimates", nil, err,
		)
		return
	}
	if resp == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Job request not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/jobs/select  (customer)
// ----------------------------------------------------------------
func (c *JobsController) SelectWorkerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.SelectWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for select-worker payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.jobService.SelectWorker(ctx, customerID, &body)
	if err != nil {
		var conflict *utils.RowVersionConflictError
		if errors.As(err, &conflict) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrCodeRowVersionConflict,
				"Another update occurred, please refresh", conflict.Current, err,
			)
			return
		}
		if errors.Is(err, utils.ErrNotJobOwner) {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrNotJobOwner.Error(),
				"This job request belongs to another customer", nil, err,
			)
			return
		}
		if errors.Is(err, utils.ErrJobClosed) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrJobClosed.Error(),
				"This job request was already assigned or closed", nil, err,
			)
			return
		}
		if errors.Is(err, utils.ErrEstimateNotFound) {
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrEstimateNotFound.Error(),
				"No pending estimate from that worker on this job request", nil, err,
			)
			return
		}
		utils.Logger.WithError(err).Error("Select worker error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not select worker", nil, err,
		)
		return
	}
	if resp == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Job request not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/jobs/cancel  (customer)
// ----------------------------------------------------------------
func (c *JobsController) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.JobActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for cancel payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.jobService.CancelJobRequest(ctx, customerID, body.JobRequestID)
	if err != nil {
		c.respondJobActionError(w, err, "Could not cancel job request")
		return
	}
	if resp == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Job request not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/jobs/start  (worker)
// ----------------------------------------------------------------
func (c *JobsController) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.JobActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for start-job payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.jobService.StartJob(ctx, workerID, body.JobRequestID)
	if err != nil {
		c.respondJobActionError(w, err, "Could not start job")
		return
	}
	if resp == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Job request not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/jobs/complete  (worker)
// ----------------------------------------------------------------
func (c *JobsController) CompleteJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.JobActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for complete-job payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.jobService.CompleteJob(ctx, workerID, body.JobRequestID)
	if err != nil {
		c.respondJobActionError(w, err, "Could not complete job")
		return
	}
	if resp == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Job request not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// respondJobActionError maps the shared lifecycle failure modes. The
// fallback message is operation-specific, the codes are not.
func (c *JobsController) respondJobActionError(w http.ResponseWriter, err error, fallback string) {
	var conflict *utils.RowVersionConflictError
	if errors.As(err, &conflict) {
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeRowVersionConflict,
			"Another update occurred, please refresh", conflict.Current, err,
		)
		return
	}
	if errors.Is(err, utils.ErrNotJobOwner) {
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrNotJobOwner.Error(),
			"This job request belongs to another customer", nil, err,
		)
		return
	}
	if errors.Is(err, utils.ErrNotAssignedWorker) {
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrNotAssignedWorker.Error(),
			"You are not the worker assigned to this job request", nil, err,
		)
		return
	}
	if errors.Is(err, utils.ErrJobClosed) || errors.Is(err, utils.ErrWrongStatus) {
		utils.RespondErrorWithCode(
			w, http.StatusConflict, err.Error(),
			"The job request is not in a state that allows this", nil, err,
		)
		return
	}
	utils.Logger.WithError(err).Error(fallback)
	utils.RespondErrorWithCode(
		w, http.StatusInternalServerError, utils.ErrCodeInternal,
		fallback, nil, err,
	)
}
