package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps service errors to a status code. Internal details
// are logged, not returned.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if appErr, ok := apperrors.As(err); ok {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	respondWithError(w, status, message)
}

// decodeJSON decodes and validates a request body
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must match %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}
