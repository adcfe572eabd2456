package models

import "github.com/genplan/genplan-web/pkg/timetable"

// TimetableViewQuery selects the upstream timetable view.
type TimetableViewQuery struct {
	Day      string
	Building string
	Search   string
}

// TimetableFilters carries selector options published by the upstream view.
type TimetableFilters struct {
	AvailableDays []string `json:"available_days"`
	Buildings     []string `json:"buildings,omitempty"`
}

// TimetableView is the payload of GET /algorithm/timetable-view/.
type TimetableView struct {
	Schedules []timetable.Schedule `json:"schedules"`
	Rooms     []timetable.Room     `json:"rooms"`
	TimeSlots []timetable.Timeslot `json:"time_slots"`
	Filters   TimetableFilters     `json:"filters"`
}

// Snapshot converts the view into an immutable projection input.
func (v TimetableView) Snapshot(fingerprint uint64) timetable.Snapshot {
	return timetable.Snapshot{
		Schedules:     v.Schedules,
		Rooms:         v.Rooms,
		TimeSlots:     v.TimeSlots,
		AvailableDays: v.Filters.AvailableDays,
		Fingerprint:   fingerprint,
	}
}
