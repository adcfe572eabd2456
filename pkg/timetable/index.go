package timetable

import "sort"

// ScheduleIndex looks up the schedules occupying a (room, slot) cell. A schedule
// spanning several timeslots is listed under each of them.
type ScheduleIndex struct {
	schedules []Schedule
	byRoom    map[string]map[SlotKey][]int
	empty     []int
}

// NewScheduleIndex builds the index. Input order is preserved within each cell.
func NewScheduleIndex(schedules []Schedule) *ScheduleIndex {
	idx := &ScheduleIndex{
		schedules: append([]Schedule(nil), schedules...),
		byRoom:    make(map[string]map[SlotKey][]int),
	}
	for pos, schedule := range idx.schedules {
		if len(schedule.TimeSlots) == 0 {
			idx.empty = append(idx.empty, pos)
			continue
		}
		roomID := schedule.RoomID.String()
		slots, ok := idx.byRoom[roomID]
		if !ok {
			slots = make(map[SlotKey][]int)
			idx.byRoom[roomID] = slots
		}
		for _, ts := range schedule.TimeSlots {
			key := ts.Key()
			bucket := slots[key]
			if n := len(bucket); n > 0 && bucket[n-1] == pos {
				continue
			}
			slots[key] = append(bucket, pos)
		}
	}
	return idx
}

// Len returns the number of indexed schedules, including unplaceable ones.
func (i *ScheduleIndex) Len() int {
	return len(i.schedules)
}

// Candidates returns the schedules indexed under room and key, in input order.
func (i *ScheduleIndex) Candidates(roomID string, key SlotKey) []Schedule {
	positions := i.byRoom[roomID][key]
	out := make([]Schedule, 0, len(positions))
	for _, pos := range positions {
		out = append(out, i.schedules[pos])
	}
	return out
}

// WithoutTimeslots returns schedules that carry no timeslots and can never be placed.
func (i *ScheduleIndex) WithoutTimeslots() []Schedule {
	out := make([]Schedule, 0, len(i.empty))
	for _, pos := range i.empty {
		out = append(out, i.schedules[pos])
	}
	return out
}

// Resolve returns every schedule occupying the cell at row and room. Each member
// timeslot of the row is looked up by its full (id, day index) key, so an entry
// on another day that reuses the same timeslot id never bleeds into this row.
func (i *ScheduleIndex) Resolve(row TimeRow, roomID string) []Schedule {
	slots, ok := i.byRoom[roomID]
	if !ok {
		return []Schedule{}
	}
	seen := make(map[int]struct{})
	positions := make([]int, 0)
	for _, member := range row.Members {
		key := member.Key()
		for _, pos := range slots[key] {
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			positions = append(positions, pos)
		}
	}
	sort.Ints(positions)
	out := make([]Schedule, 0, len(positions))
	for _, pos := range positions {
		out = append(out, i.schedules[pos])
	}
	return out
}
