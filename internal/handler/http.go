package handler

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
}

type errorResponse struct {
	Error string `json:"error"`
}

func setCORS(w http.ResponseWriter) {
	for k, v := range corsHeaders {
		w.Header().Set(k, v)
	}
}

// preflight answers OPTIONS with an empty 200 and reports whether it did.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	setCORS(w)
	w.WriteHeader(http.StatusOK)
	return true
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	setCORS(w)
	encodeJSON(w, status, v)
}

// encodeJSON writes v without the function CORS headers.
func encodeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).WithField("status", status).Error("Failed to encode response")
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	setCORS(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
