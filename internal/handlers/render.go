package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/a-h/templ"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "failed to render", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json failed status=%d err=%v", status, err)
	}
}

// apiError is the body of every non-2xx API response.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: "bad_request", Message: message})
}

func notFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, apiError{Error: "not_found", Message: message})
}

func internalError(w http.ResponseWriter, err error) {
	log.Printf("request failed err=%v", err)
	writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal_server_error", Message: "internal server error"})
}
