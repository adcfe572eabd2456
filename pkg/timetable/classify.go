package timetable

// Category is the visual classification of a grid cell.
type Category string

const (
	CategoryEmpty               Category = "empty"
	CategoryClear               Category = "clear"
	CategorySubstitute          Category = "substitute"
	CategoryConflictWithReason  Category = "conflict-with-reason"
	CategoryConflictUnexplained Category = "conflict-unexplained"
)

// Interactive reports whether the category opens a conflict detail dialog.
func (c Category) Interactive() bool {
	return c == CategoryConflictWithReason
}

// Classification is the classifier verdict for one cell.
type Classification struct {
	Category       Category
	Representative *Schedule
}

// Classify derives a cell category from its occupants. Only the first occupant
// is inspected; later occupants of a double-booked cell do not change the result.
//
// TODO: revisit with the product owner whether a clean first occupant should
// mask a conflicted later one.
func Classify(schedules []Schedule) Classification {
	if len(schedules) == 0 {
		return Classification{Category: CategoryEmpty}
	}
	first := schedules[0]
	result := Classification{Representative: &first}
	switch {
	case first.IsSubstitute():
		result.Category = CategorySubstitute
	case first.IsConflicted && first.ConflictReason() != "":
		result.Category = CategoryConflictWithReason
	case first.IsConflicted:
		result.Category = CategoryConflictUnexplained
	default:
		result.Category = CategoryClear
	}
	return result
}
