package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vrsandeep/squish-go/internal/batch"
	"github.com/vrsandeep/squish-go/internal/jobs"
	"github.com/vrsandeep/squish-go/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %T response: %v", payload, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a standardized JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, errorResponse{Error: message})
}

// RespondWithErr picks the status code for a domain error and writes it.
func RespondWithErr(w http.ResponseWriter, err error) {
	RespondWithError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrItemNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, batch.ErrAlreadyRunning),
		errors.Is(err, batch.ErrInvalidTransition),
		errors.Is(err, jobs.ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnknownFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
