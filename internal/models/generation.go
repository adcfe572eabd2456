package models

import (
	"encoding/json"
	"time"
)

// GenerationStatus tracks the lifecycle of an asynchronous generation request.
type GenerationStatus string

const (
	GenerationStatusQueued    GenerationStatus = "QUEUED"
	GenerationStatusRunning   GenerationStatus = "RUNNING"
	GenerationStatusSucceeded GenerationStatus = "SUCCEEDED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
)

// Terminal reports whether the status will not change any more.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationStatusSucceeded || s == GenerationStatusFailed
}

// GenerationJob is a hybrid (GA + SA) generation request forwarded upstream.
type GenerationJob struct {
	ID          string           `json:"id"`
	RequestedBy string           `json:"requested_by"`
	Status      GenerationStatus `json:"status"`
	Attempts    int              `json:"attempts"`
	Error       string           `json:"error,omitempty"`
	Result      json.RawMessage  `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}
