package dto

import (
	"encoding/json"

	"github.com/genplan/genplan-web/internal/models"
)

// GenerateScheduleRequest configures the upstream hybrid GA + SA generator.
type GenerateScheduleRequest struct {
	AcademicYear       string  `json:"academic_year" validate:"required,max=20"`
	Semester           string  `json:"semester" validate:"required,oneof=ganjil genap pendek"`
	PopulationSize     int     `json:"population_size,omitempty" validate:"omitempty,min=10,max=1000"`
	Generations        int     `json:"generations,omitempty" validate:"omitempty,min=1,max=10000"`
	MutationRate       float64 `json:"mutation_rate,omitempty" validate:"omitempty,gt=0,lt=1"`
	InitialTemperature float64 `json:"initial_temperature,omitempty" validate:"omitempty,gt=0"`
	CoolingRate        float64 `json:"cooling_rate,omitempty" validate:"omitempty,gt=0,lt=1"`
	ClearExisting      bool    `json:"clear_existing"`
}

// GenerationJobResponse reports the state of a queued generation.
type GenerationJobResponse struct {
	Job *models.GenerationJob `json:"job"`
}

// ConflictCheckRequest asks upstream to re-evaluate conflicts.
type ConflictCheckRequest struct {
	Day         string `json:"day,omitempty" validate:"max=20"`
	ScheduleIDs []int  `json:"schedule_ids,omitempty" validate:"omitempty,max=500,dive,min=1"`
}

// ResolveConflictsRequest asks upstream to resolve detected conflicts.
type ResolveConflictsRequest struct {
	ScheduleIDs []int  `json:"schedule_ids" validate:"required,min=1,max=500,dive,min=1"`
	Strategy    string `json:"strategy,omitempty" validate:"omitempty,oneof=auto reschedule relocate"`
}

// UpstreamResult passes an upstream response body through unchanged.
type UpstreamResult struct {
	Result json.RawMessage `json:"result"`
}
