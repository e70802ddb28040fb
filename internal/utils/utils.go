package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger sets where WriteJSON reports encoding and write failures.
func SetLogger(l logrus.FieldLogger) {
	logger = l
}

type Envelope map[string]interface{}

func WriteJSON(w http.ResponseWriter, status int, data Envelope) {
	js, err := json.MarshalIndent(data, "", " ")
	if err != nil {
		logger.WithError(err).WithField("http.status_code", status).Error("error marshaling JSON")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	js = append(js, '\n')
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(js); err != nil {
		logger.WithError(err).Error("error writing JSON response")
	}
}

// ValidationError marks a request that is missing a required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a lookup for an unknown id.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(format string, args ...interface{}) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// WriteError maps an error onto a status code and a {"error": ...} body.
// Anything that is not a validation or not-found error is reported with
// serverMessage so backend details never reach the client.
func WriteError(w http.ResponseWriter, err error, serverMessage string) int {
	var ve *ValidationError
	var nf *NotFoundError

	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, Envelope{"error": ve.Message})
		return http.StatusBadRequest
	case errors.As(err, &nf):
		WriteJSON(w, http.StatusNotFound, Envelope{"error": nf.Message})
		return http.StatusNotFound
	default:
		WriteJSON(w, http.StatusInternalServerError, Envelope{"error": serverMessage})
		return http.StatusInternalServerError
	}
}
