package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/services"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		utils.JSONError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrPostNotFound):
		utils.JSONError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, services.ErrForbidden):
		utils.JSONError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, services.ErrSelfFriend):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		utils.JSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrPictureRequired):
		utils.JSONMessage(w, http.StatusBadRequest, "File upload failed.")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
	}
}
