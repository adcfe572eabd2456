package timetable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// AllBuildings is the building filter sentinel meaning "no filter".
const AllBuildings = "all"

// Schedule types as sent by the upstream API.
const (
	ScheduleTypePermanent  = 0
	ScheduleTypeSubstitute = 1
)

// FlexInt decodes a JSON number or numeric string into an int.
// Upstream payloads are inconsistent about quoting ids and day indexes.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case json.Number:
		if _, err := value.Int64(); err != nil {
			return fmt.Errorf("decode integer %s: not a whole number", string(data))
		}
		raw = value.String()
	case string:
		// cast parses strings with base 0; drop leading zeros so "08" stays decimal.
		value = strings.TrimLeft(strings.TrimSpace(value), "0")
		if value == "" {
			*f = 0
			return nil
		}
		raw = value
	default:
		return fmt.Errorf("decode integer %s: unsupported JSON type %T", string(data), raw)
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return fmt.Errorf("decode integer %s: %w", string(data), err)
	}
	*f = FlexInt(v)
	return nil
}

// Int returns the plain integer value.
func (f FlexInt) Int() int {
	return int(f)
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		return fmt.Errorf("decode string %s: %w", string(data), err)
	}
	*f = FlexString(strings.TrimSpace(v))
	return nil
}

// String returns the plain string value.
func (f FlexString) String() string {
	return string(f)
}

// Timeslot is one physical day/time slot. Several timeslots may share the same
// time bounds while differing in id, day and day index.
type Timeslot struct {
	ID        FlexInt `json:"id"`
	Day       string  `json:"day,omitempty"`
	DayIndex  FlexInt `json:"day_index"`
	StartTime string  `json:"start_time,omitempty"`
	EndTime   string  `json:"end_time,omitempty"`
}

// Key returns the composite (id, day index) identity of the timeslot.
func (t Timeslot) Key() SlotKey {
	return SlotKey{TimeslotID: t.ID.Int(), DayIndex: t.DayIndex.Int()}
}

// SlotKey identifies a timeslot. A timeslot id alone is not unique across days.
type SlotKey struct {
	TimeslotID int
	DayIndex   int
}

// Room is a lecture room grouped by building.
type Room struct {
	ID       FlexString `json:"id"`
	Name     string     `json:"name,omitempty"`
	Building string     `json:"building"`
	Capacity FlexInt    `json:"capacity,omitempty"`
}

// Subject describes the course taught in a schedule entry.
type Subject struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Kelas string `json:"kelas"`
}

// Schedule is a timetable entry occupying one room over one or more timeslots.
type Schedule struct {
	ID           FlexInt    `json:"id"`
	RoomID       FlexString `json:"room_id"`
	Type         FlexInt    `json:"type"`
	IsConflicted bool       `json:"is_conflicted"`
	Reason       *string    `json:"reason"`
	Severity     string     `json:"severity,omitempty"`
	Subject      Subject    `json:"subject"`
	Lecturer     string     `json:"lecturer,omitempty"`
	TimeSlots    []Timeslot `json:"time_slots"`
}

// IsSubstitute reports whether the entry is a substitute ("Kelas Pengganti") class.
func (s Schedule) IsSubstitute() bool {
	return s.Type.Int() == ScheduleTypeSubstitute
}

// ConflictReason returns the trimmed conflict reason, empty when absent.
func (s Schedule) ConflictReason() string {
	if s.Reason == nil {
		return ""
	}
	return strings.TrimSpace(*s.Reason)
}

// Label is the short subject/class text shown inside a grid cell.
func (s Schedule) Label() string {
	label := s.Subject.Name
	if s.Subject.Kelas != "" {
		label = fmt.Sprintf("%s (%s)", label, s.Subject.Kelas)
	}
	return label
}
