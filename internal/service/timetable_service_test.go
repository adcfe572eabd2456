package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/genplan/genplan-web/internal/dto"
	"github.com/genplan/genplan-web/internal/models"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/timetable"
)

type stubCacheRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = nil
	return nil
}

type fakeTimetableUpstream struct {
	calls    int32
	queries  []models.TimetableViewQuery
	mu       sync.Mutex
	snapshot timetable.Snapshot
	err      error
	delay    time.Duration
}

func (f *fakeTimetableUpstream) TimetableView(ctx context.Context, token string, query models.TimetableViewQuery) (*timetable.Snapshot, []string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	snapshot := f.snapshot
	return &snapshot, nil, nil
}

func strPtr(s string) *string { return &s }

func sampleSnapshot() timetable.Snapshot {
	return timetable.Snapshot{
		AvailableDays: []string{"Senin", "Selasa"},
		Rooms: []timetable.Room{
			{ID: "DS-301", Building: "DS"},
			{ID: "GK-101", Building: "GK"},
		},
		TimeSlots: []timetable.Timeslot{
			{ID: 1, Day: "Senin", DayIndex: 0, StartTime: "07:00:00", EndTime: "07:50:00"},
			{ID: 2, Day: "Selasa", DayIndex: 1, StartTime: "07:00:00", EndTime: "07:50:00"},
		},
		Schedules: []timetable.Schedule{
			{
				ID: 10, RoomID: "DS-301", IsConflicted: true, Reason: strPtr("Dosen bentrok"),
				Subject:   timetable.Subject{Name: "Kalkulus", Kelas: "A"},
				TimeSlots: []timetable.Timeslot{{ID: 1, DayIndex: 0}},
			},
			{
				ID: 11, RoomID: "DS-301",
				Subject:   timetable.Subject{Name: "Fisika", Kelas: "B"},
				TimeSlots: []timetable.Timeslot{{ID: 99, DayIndex: 0}},
			},
		},
		Fingerprint: 1234,
	}
}

func newTimetableServiceForTest(upstream *fakeTimetableUpstream, cacheEnabled bool, logger *zap.Logger) *TimetableService {
	cache := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), cacheEnabled)
	return NewTimetableService(TimetableServiceParams{
		Upstream: upstream,
		Cache:    cache,
		Logger:   logger,
		Config:   TimetableServiceConfig{CacheTTL: time.Minute, MemoSize: 8},
	})
}

func TestTimetableServiceGridDefaultsToFirstAvailableDay(t *testing.T) {
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot()}
	svc := newTimetableServiceForTest(upstream, false, nil)

	resp, hit, err := svc.Grid(context.Background(), "tok", dto.TimetableQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Senin", resp.Query.Day)
	assert.Equal(t, timetable.AllBuildings, resp.Query.Building)
	assert.Equal(t, []string{"Senin", "Selasa"}, resp.AvailableDays)

	require.Len(t, resp.Grid.Rows, 1)
	require.Len(t, resp.Grid.Columns, 2)
	cell := resp.Grid.Rows[0].Cells[0]
	assert.Equal(t, timetable.CategoryConflictWithReason, cell.Category)
	assert.True(t, cell.Interactive)

	require.Len(t, upstream.queries, 2)
	assert.Equal(t, "", upstream.queries[0].Day)
	assert.Equal(t, "Senin", upstream.queries[1].Day)
}

func TestTimetableServiceCachesUpstreamViews(t *testing.T) {
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot()}
	svc := newTimetableServiceForTest(upstream, true, nil)
	ctx := context.Background()

	first, hit, err := svc.Grid(ctx, "tok", dto.TimetableQuery{Day: "Senin", Building: "DS"})
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Grid(ctx, "tok", dto.TimetableQuery{Day: "Senin", Building: "all"})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))

	assert.Len(t, first.Grid.Columns, 1)
	assert.Len(t, second.Grid.Columns, 2)

	require.NoError(t, svc.Invalidate(ctx))
	_, hit, err = svc.Grid(ctx, "tok", dto.TimetableQuery{Day: "Senin"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&upstream.calls))
}

func TestTimetableServiceCacheKeepsDayCasing(t *testing.T) {
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot()}
	svc := newTimetableServiceForTest(upstream, true, nil)
	ctx := context.Background()

	lower, hit, err := svc.Grid(ctx, "tok", dto.TimetableQuery{Day: "senin"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, lower.Grid.Rows)

	proper, hit, err := svc.Grid(ctx, "tok", dto.TimetableQuery{Day: "Senin"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, proper.Grid.Rows, 1)

	require.Len(t, upstream.queries, 2)
	assert.Equal(t, "senin", upstream.queries[0].Day)
	assert.Equal(t, "Senin", upstream.queries[1].Day)
}

func TestTimetableServiceCollapsesConcurrentFetches(t *testing.T) {
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot(), delay: 50 * time.Millisecond}
	svc := newTimetableServiceForTest(upstream, false, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Grid(context.Background(), "tok", dto.TimetableQuery{Day: "Senin"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&upstream.calls), int32(8))
}

func TestTimetableServiceHonoursCancellation(t *testing.T) {
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot(), delay: time.Second}
	svc := newTimetableServiceForTest(upstream, false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := svc.Grid(ctx, "tok", dto.TimetableQuery{Day: "Senin"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimetableServiceLogsUnplacedSchedulesOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot()}
	svc := newTimetableServiceForTest(upstream, false, zap.New(core))

	for i := 0; i < 2; i++ {
		resp, _, err := svc.Grid(context.Background(), "tok", dto.TimetableQuery{Day: "Senin"})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Grid.Stats.UnplacedSchedules)
	}

	entries := logs.FilterMessage("schedule cannot be placed in timetable grid").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(11), entries[0].ContextMap()["schedule_id"])
	assert.Equal(t, timetable.WarningUnknownTimeslot, entries[0].ContextMap()["reason"])
}

func TestTimetableServiceDays(t *testing.T) {
	upstream := &fakeTimetableUpstream{snapshot: sampleSnapshot()}
	svc := newTimetableServiceForTest(upstream, false, nil)

	days, _, err := svc.Days(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Senin", days.DefaultDay)
	assert.Equal(t, []string{"DS", "GK"}, days.Buildings)
}

func TestTimetableServicePropagatesUpstreamErrors(t *testing.T) {
	upstream := &fakeTimetableUpstream{err: appErrors.Clone(appErrors.ErrUnauthorized, "Token expired")}
	svc := newTimetableServiceForTest(upstream, false, nil)

	_, _, err := svc.Grid(context.Background(), "tok", dto.TimetableQuery{Day: "Senin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceRejectsLongSearch(t *testing.T) {
	svc := newTimetableServiceForTest(&fakeTimetableUpstream{}, false, nil)
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err := svc.Grid(context.Background(), "tok", dto.TimetableQuery{Day: "Senin", Search: string(long)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
