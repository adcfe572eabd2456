package timetable

// Input is everything a projection depends on. Filters are explicit parameters;
// the projection holds no state of its own.
type Input struct {
	Schedules []Schedule
	Rooms     []Room
	TimeSlots []Timeslot
	Day       string
	Building  string
}

// Cell is one (time row, room) intersection.
type Cell struct {
	RoomID         string     `json:"room_id"`
	Category       Category   `json:"category"`
	Interactive    bool       `json:"interactive"`
	DoubleBooked   bool       `json:"double_booked"`
	Representative *Schedule  `json:"representative,omitempty"`
	Schedules      []Schedule `json:"schedules"`
}

// Row is a rendered time row with one cell per column.
type Row struct {
	TimeRow
	Label string `json:"label"`
	Cells []Cell `json:"cells"`
}

// DataWarning flags a schedule that cannot be placed in the grid, or that is
// placed with some of its timeslots missing.
type DataWarning struct {
	ScheduleID int    `json:"schedule_id"`
	RoomID     string `json:"room_id"`
	Reason     string `json:"reason"`
}

const (
	WarningNoTimeslots     = "no_timeslots"
	WarningUnknownTimeslot = "unknown_timeslot"
	WarningUnknownRoom     = "unknown_room"
	// WarningPartialTimeslots marks a schedule that still renders in its known
	// slots. It is not counted as unplaced.
	WarningPartialTimeslots = "partial_timeslots"
)

// Unplaced reports whether the warned schedule is absent from every grid.
func (w DataWarning) Unplaced() bool {
	return w.Reason != WarningPartialTimeslots
}

// Stats summarises a projected grid.
type Stats struct {
	Rows              int `json:"rows"`
	Columns           int `json:"columns"`
	OccupiedCells     int `json:"occupied_cells"`
	ConflictCells     int `json:"conflict_cells"`
	SubstituteCells   int `json:"substitute_cells"`
	DoubleBookedCells int `json:"double_booked_cells"`
	UnplacedSchedules int `json:"unplaced_schedules"`
}

// Grid is the render-ready day x room matrix. Grids returned by a Projector are
// shared between callers and must be treated as read-only.
type Grid struct {
	Day      string          `json:"day"`
	Building string          `json:"building"`
	Groups   []BuildingGroup `json:"groups"`
	Columns  []Room          `json:"columns"`
	Rows     []Row           `json:"rows"`
	Stats    Stats           `json:"stats"`
	Warnings []DataWarning   `json:"warnings,omitempty"`
}

// Project builds a grid from scratch.
func Project(in Input) *Grid {
	return project(in, NewScheduleIndex(in.Schedules))
}

func project(in Input, index *ScheduleIndex) *Grid {
	rows := DeduplicateTimeslots(in.TimeSlots, in.Day)
	groups := GroupRooms(in.Rooms, in.Building)
	columns := groups.Columns()

	grid := &Grid{
		Day:      in.Day,
		Building: in.Building,
		Groups:   groups.Groups,
		Columns:  columns,
		Rows:     make([]Row, 0, len(rows)),
	}
	if grid.Groups == nil {
		grid.Groups = []BuildingGroup{}
	}

	for _, timeRow := range rows {
		row := Row{TimeRow: timeRow, Label: timeRow.Label(), Cells: make([]Cell, 0, len(columns))}
		for _, room := range columns {
			cell := resolveCell(index, timeRow, room.ID.String())
			grid.Stats.add(cell)
			row.Cells = append(row.Cells, cell)
		}
		grid.Rows = append(grid.Rows, row)
	}

	grid.Warnings = unplaced(in, index)
	grid.Stats.Rows = len(grid.Rows)
	grid.Stats.Columns = len(columns)
	for _, warning := range grid.Warnings {
		if warning.Unplaced() {
			grid.Stats.UnplacedSchedules++
		}
	}
	return grid
}

func resolveCell(index *ScheduleIndex, row TimeRow, roomID string) Cell {
	occupants := index.Resolve(row, roomID)
	verdict := Classify(occupants)
	return Cell{
		RoomID:         roomID,
		Category:       verdict.Category,
		Interactive:    verdict.Category.Interactive(),
		DoubleBooked:   len(occupants) > 1,
		Representative: verdict.Representative,
		Schedules:      occupants,
	}
}

func (s *Stats) add(cell Cell) {
	if len(cell.Schedules) == 0 {
		return
	}
	s.OccupiedCells++
	if cell.DoubleBooked {
		s.DoubleBookedCells++
	}
	switch cell.Category {
	case CategorySubstitute:
		s.SubstituteCells++
	case CategoryConflictWithReason, CategoryConflictUnexplained:
		s.ConflictCells++
	}
}

// unplaced lists schedules that can never render because they have no timeslots,
// no timeslot the catalog knows, or a room the catalog does not know. Schedules
// with only some unknown timeslots are listed as partial. It is independent of
// the day and building filters.
func unplaced(in Input, index *ScheduleIndex) []DataWarning {
	known := make(map[SlotKey]struct{}, len(in.TimeSlots))
	for _, ts := range in.TimeSlots {
		known[ts.Key()] = struct{}{}
	}
	rooms := make(map[string]struct{}, len(in.Rooms))
	for _, room := range in.Rooms {
		rooms[room.ID.String()] = struct{}{}
	}

	var warnings []DataWarning
	for _, schedule := range index.schedules {
		warning := DataWarning{ScheduleID: schedule.ID.Int(), RoomID: schedule.RoomID.String()}
		switch {
		case len(schedule.TimeSlots) == 0:
			warning.Reason = WarningNoTimeslots
		default:
			matched := countKnown(schedule.TimeSlots, known)
			_, roomKnown := rooms[warning.RoomID]
			switch {
			case matched == 0:
				warning.Reason = WarningUnknownTimeslot
			case !roomKnown:
				warning.Reason = WarningUnknownRoom
			case matched < len(schedule.TimeSlots):
				warning.Reason = WarningPartialTimeslots
			default:
				continue
			}
		}
		warnings = append(warnings, warning)
	}
	return warnings
}

func countKnown(slots []Timeslot, known map[SlotKey]struct{}) int {
	n := 0
	for _, ts := range slots {
		if _, ok := known[ts.Key()]; ok {
			n++
		}
	}
	return n
}
