package timetable

import (
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is an immutable copy of the upstream timetable view.
type Snapshot struct {
	Schedules     []Schedule `json:"schedules"`
	Rooms         []Room     `json:"rooms"`
	TimeSlots     []Timeslot `json:"time_slots"`
	AvailableDays []string   `json:"available_days"`
	// Fingerprint identifies the snapshot contents. Zero means unknown.
	Fingerprint uint64 `json:"fingerprint"`
}

// Fingerprint hashes a raw upstream payload.
func Fingerprint(raw []byte) uint64 {
	return xxhash.Sum64(raw)
}

// EnsureFingerprint fills in a missing fingerprint from the snapshot contents.
func (s *Snapshot) EnsureFingerprint() uint64 {
	if s.Fingerprint != 0 {
		return s.Fingerprint
	}
	payload, err := json.Marshal(struct {
		Schedules []Schedule `json:"schedules"`
		Rooms     []Room     `json:"rooms"`
		TimeSlots []Timeslot `json:"time_slots"`
	}{s.Schedules, s.Rooms, s.TimeSlots})
	if err != nil {
		return 0
	}
	s.Fingerprint = Fingerprint(payload)
	return s.Fingerprint
}

type gridKey struct {
	fingerprint uint64
	day         string
	building    string
}

// Projector memoizes schedule indexes per snapshot and grids per
// (snapshot, day, building). It is safe for concurrent use.
type Projector struct {
	mu       sync.Mutex
	capacity int

	indexes    map[uint64]*ScheduleIndex
	indexOrder []uint64
	grids      map[gridKey]*Grid
	gridOrder  []gridKey

	hits   uint64
	misses uint64
}

// NewProjector creates a projector keeping at most capacity grids.
func NewProjector(capacity int) *Projector {
	if capacity <= 0 {
		capacity = 64
	}
	return &Projector{
		capacity: capacity,
		indexes:  make(map[uint64]*ScheduleIndex),
		grids:    make(map[gridKey]*Grid),
	}
}

// Project returns the grid for snapshot filtered to day and building,
// recomputing only when one of them changed since it was last projected.
// The boolean reports whether the grid came from the memo.
func (p *Projector) Project(snapshot Snapshot, day, building string) (*Grid, bool) {
	fingerprint := snapshot.EnsureFingerprint()
	in := Input{
		Schedules: snapshot.Schedules,
		Rooms:     snapshot.Rooms,
		TimeSlots: snapshot.TimeSlots,
		Day:       day,
		Building:  building,
	}
	if fingerprint == 0 {
		return Project(in), false
	}

	key := gridKey{fingerprint: fingerprint, day: day, building: building}

	p.mu.Lock()
	if grid, ok := p.grids[key]; ok {
		p.hits++
		p.mu.Unlock()
		return grid, true
	}
	p.misses++
	index, ok := p.indexes[fingerprint]
	p.mu.Unlock()

	if !ok {
		index = NewScheduleIndex(snapshot.Schedules)
	}
	grid := project(in, index)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.indexes[fingerprint]; !exists {
		p.indexes[fingerprint] = index
		p.indexOrder = append(p.indexOrder, fingerprint)
		p.evictIndexes()
	}
	if existing, exists := p.grids[key]; exists {
		return existing, false
	}
	p.grids[key] = grid
	p.gridOrder = append(p.gridOrder, key)
	p.evictGrids()
	return grid, false
}

// Stats returns memo hit and miss counts.
func (p *Projector) Stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

func (p *Projector) evictGrids() {
	for len(p.gridOrder) > p.capacity {
		oldest := p.gridOrder[0]
		p.gridOrder = p.gridOrder[1:]
		delete(p.grids, oldest)
	}
}

// A snapshot typically serves several days, so fewer indexes than grids are kept.
func (p *Projector) evictIndexes() {
	limit := p.capacity/4 + 1
	for len(p.indexOrder) > limit {
		oldest := p.indexOrder[0]
		p.indexOrder = p.indexOrder[1:]
		delete(p.indexes, oldest)
	}
}
