package handler

import (
	"net/http"

	"waveband/internal/scheduler"
)

// SchedulerHandler exposes the internal tick and job-runner triggers.
// Not part of the public API; gated by the internal-token middleware.
type SchedulerHandler struct {
	sched *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{sched: sched}
}

// Tick handles POST /internal/scheduler/tick
func (h *SchedulerHandler) Tick(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.Tick(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RunJobs handles POST /internal/scheduler/jobs/run
func (h *SchedulerHandler) RunJobs(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.RunDueJobs(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
