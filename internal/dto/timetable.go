package dto

import (
	"time"

	"github.com/genplan/genplan-web/pkg/timetable"
)

// TimetableQuery selects the grid to render.
type TimetableQuery struct {
	Day      string `form:"day" json:"day"`
	Building string `form:"building" json:"building"`
	Search   string `form:"search" json:"search" validate:"max=100"`
}

// ExportQuery selects a grid and an output format.
type ExportQuery struct {
	TimetableQuery
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// ShareLinkRequest asks for a signed link to an exported grid.
type ShareLinkRequest struct {
	Day      string `json:"day" validate:"required,max=20"`
	Building string `json:"building" validate:"max=50"`
	Format   string `json:"format" validate:"required,oneof=csv pdf"`
}

// ShareLinkResponse returns the signed link.
type ShareLinkResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AvailableDaysResponse seeds the day selector.
type AvailableDaysResponse struct {
	Days       []string `json:"days"`
	DefaultDay string   `json:"default_day"`
	Buildings  []string `json:"buildings"`
}

// GridResponse wraps a projected grid with the selectors used to build it.
type GridResponse struct {
	Query         TimetableQuery  `json:"query"`
	AvailableDays []string        `json:"available_days"`
	Grid          *timetable.Grid `json:"grid"`
}
