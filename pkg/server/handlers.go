package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"arbiter-hq/turnstile/pkg/admission"
)

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	// Subject identifies the caller (API key, account ID).
	Subject string `json:"subject"`

	// Tier is the subject's tier name. Unknown values resolve to "free".
	Tier string `json:"tier"`

	// Resource is the operation being guarded. Optional.
	Resource string `json:"resource,omitempty"`
}

// CheckResponse is the body returned for every admission check.
type CheckResponse struct {
	Allowed bool `json:"allowed"`

	Reason string `json:"reason,omitempty"`

	// RetryAfterSeconds is the suggested wait before retrying, rounded up.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`

	EffectiveLimit int `json:"effective_limit,omitempty"`
}

// errorResponse is the body returned for transport-level failures.
type errorResponse struct {
	Error string `json:"error"`
}

// checkHandler evaluates admission decisions.
type checkHandler struct {
	engine *admission.Engine
	logger *slog.Logger
}

func newCheckHandler(engine *admission.Engine) *checkHandler {
	return &checkHandler{
		engine: engine,
		logger: slog.Default().With("component", "server.check"),
	}
}

func (h *checkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	decision := h.engine.Check(r.Context(), req.Subject, admission.ParseTier(req.Tier), req.Resource)

	resp := CheckResponse{
		Allowed:        decision.Allowed,
		Reason:         string(decision.Reason),
		EffectiveLimit: decision.EffectiveLimit,
	}

	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusTooManyRequests
		if decision.RetryAfter > 0 {
			seconds := int(decision.RetryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			resp.RetryAfterSeconds = seconds
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	writeJSON(w, status, resp)
}

// healthHandler answers liveness probes.
type healthHandler struct{}

func (healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
