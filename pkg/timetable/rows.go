package timetable

import "sort"

// TimeRow is one display row of the grid: a unique (start, end) range on the
// selected day together with every timeslot that shares it.
type TimeRow struct {
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Members   []Timeslot `json:"members"`
}

// Label renders the row as "HH:MM:SS-HH:MM:SS".
func (r TimeRow) Label() string {
	return r.StartTime + "-" + r.EndTime
}

type timeRange struct {
	start string
	end   string
}

// DeduplicateTimeslots filters slots to day and collapses them into unique time
// rows ordered by start then end time. Times are fixed-width "HH:MM:SS", so a
// lexicographic sort is chronological.
func DeduplicateTimeslots(slots []Timeslot, day string) []TimeRow {
	positions := make(map[timeRange]int)
	rows := make([]TimeRow, 0)
	for _, slot := range slots {
		if slot.Day != day {
			continue
		}
		key := timeRange{start: slot.StartTime, end: slot.EndTime}
		idx, ok := positions[key]
		if !ok {
			idx = len(rows)
			positions[key] = idx
			rows = append(rows, TimeRow{StartTime: slot.StartTime, EndTime: slot.EndTime})
		}
		rows[idx].Members = append(rows[idx].Members, slot)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StartTime != rows[j].StartTime {
			return rows[i].StartTime < rows[j].StartTime
		}
		return rows[i].EndTime < rows[j].EndTime
	})
	return rows
}
