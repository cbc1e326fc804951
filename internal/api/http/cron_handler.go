package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"rentloop-backend/internal/jobs"
	"rentloop-backend/internal/logger"
)

// CronHandler exposes the scheduled passes as authenticated HTTP triggers,
// for platforms that drive cron externally and for manual operator runs.
type CronHandler struct {
	runner *jobs.JobRunner
	secret string
}

func NewCronHandler(runner *jobs.JobRunner, secret string) *CronHandler {
	return &CronHandler{runner: runner, secret: secret}
}

func (h *CronHandler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// HandleProcessDue runs the primary collection pass and reports the summary.
func (h *CronHandler) HandleProcessDue(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.runner.RunCollectionPass(r.Context())
	if err != nil {
		logger.Error("Collection pass failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

// HandleRetryFailed runs the retry pass and reports the summary.
func (h *CronHandler) HandleRetryFailed(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.runner.RunRetryPass(r.Context())
	if err != nil {
		logger.Error("Retry pass failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
