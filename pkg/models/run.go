package models

import "time"

// RunStatus is the lifecycle state of a task run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ItemStatus is the terminal outcome of one record within a run.
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// Run summarizes one invocation of a task over the source records.
type Run struct {
	ID         string    `json:"id"`
	Task       string    `json:"task"`
	Status     RunStatus `json:"status"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// RunItem is the outcome recorded for a single hotel in a run.
type RunItem struct {
	RunID     string     `json:"run_id"`
	HotelID   int64      `json:"hotel_id"`
	Status    ItemStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	Cached    bool       `json:"cached"`
	Error     string     `json:"error,omitempty"`
	LatencyMs int64      `json:"latency_ms"`
	CreatedAt time.Time  `json:"created_at"`
}
