package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/maisha0055/Shohojogi-sub000/internal/middleware"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

var validate = validator.New()

// callerID pulls the authenticated user out of the request context. Writes
// the error response itself so handlers can just bail on !ok.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ctxUserID := r.Context().Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"No userID in context", nil,
		)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(ctxUserID.(string))
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Malformed userID in context", nil, err,
		)
		return uuid.Nil, false
	}
	return id, true
}

// validateBody runs struct validation and writes the 400 on failure.
func validateBody(w http.ResponseWriter, body any) bool {
	if err := validate.Struct(body); err != nil {
		var details any
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field()+": "+fe.Tag())
			}
			details = fields
		}
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation,
			"Payload failed validation", details, err,
		)
		return false
	}
	return true
}
