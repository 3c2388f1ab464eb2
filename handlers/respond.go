package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/robertfedus/natours/apperror"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// Envelope is the wire shape of every response. Results is only set on list
// endpoints.
type Envelope struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Field   string      `json:"field,omitempty"`
}

func respond(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, Envelope{Status: statusSuccess, Data: data})
}

func respondList(w http.ResponseWriter, results int, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Status: statusSuccess, Results: &results, Data: data})
}

// respondError is the single sink for domain errors: taxonomy kind decides
// the status code, handlers never pick one themselves.
func respondError(w http.ResponseWriter, err error) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		ae = apperror.Operation("internal", err)
	}
	switch ae.Kind {
	case apperror.KindNotFound:
		writeJSON(w, http.StatusNotFound, Envelope{Status: statusFail, Message: ae.Message})
	case apperror.KindValidation:
		writeJSON(w, http.StatusBadRequest, Envelope{Status: statusFail, Message: ae.Message, Field: ae.Field})
	default:
		log.Printf("internal error: %v", ae)
		writeJSON(w, http.StatusInternalServerError, Envelope{Status: statusError, Message: "Something went very wrong"})
	}
}

// respondFail writes a one-off 4xx outside the store taxonomy (eg. bad
// credentials).
func respondFail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Status: statusFail, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
