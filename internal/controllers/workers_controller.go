package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/maisha0055/Shohojogi-sub000/internal/dtos"
	"github.com/maisha0055/Shohojogi-sub000/internal/services"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

type WorkersController struct {
	workerService *services.WorkerService
}

func NewWorkersController(ws *services.WorkerService) *WorkersController {
	return &WorkersController{workerService: ws}
}

// ----------------------------------------------------------------
// PUT /api/v1/workers/availability
// ----------------------------------------------------------------
func (c *WorkersController) UpdateAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.UpdateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for availability payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.workerService.UpdateAvailability(ctx, workerID, &body)
	if err != nil {
		var conflict *utils.RowVersionConflictError
		if errors.As(err, &conflict) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrCodeRowVersionConflict,
				"Another update occurred, please refresh", conflict.Current, err,
			)
			return
		}
		utils.Logger.WithError(err).Error("Update availability error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not update availability", nil, err,
		)
		return
	}
	if resp == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Worker not found", nil, nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/workers/notifications
// ----------------------------------------------------------------
func (c *WorkersController) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := callerID(w, r)
	if !ok {
		return
	}

	resp, err := c.workerService.ListNotifications(ctx, workerID)
	if err != nil {
		utils.Logger.WithError(err).Error("List notifications error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not list notifications", nil, err,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/workers/notifications/seen
// ----------------------------------------------------------------
func (c *WorkersController) MarkNotificationsSeenHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body dtos.MarkNotificationsSeenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for mark-seen payload", nil, err,
		)
		return
	}
	if !validateBody(w, body) {
		return
	}

	resp, err := c.workerService.MarkNotificationsSeen(ctx, workerID, &body)
	if err != nil {
		utils.Logger.WithError(err).Error("Mark notifications seen error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not mark notifications seen", nil, err,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
