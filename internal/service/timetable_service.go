package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/genplan/genplan-web/internal/dto"
	"github.com/genplan/genplan-web/internal/models"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/timetable"
)

type timetableViewFetcher interface {
	TimetableView(ctx context.Context, token string, query models.TimetableViewQuery) (*timetable.Snapshot, []string, error)
}

// TimetableServiceConfig tunes snapshot caching and projection.
type TimetableServiceConfig struct {
	CacheTTL        time.Duration
	MemoSize        int
	DefaultBuilding string
}

// cachedView is the cache representation of one upstream view.
type cachedView struct {
	Snapshot  timetable.Snapshot `json:"snapshot"`
	Buildings []string           `json:"buildings"`
}

// TimetableService fetches timetable views from upstream and projects them
// into grids.
type TimetableService struct {
	upstream  timetableViewFetcher
	cache     *CacheService
	metrics   *MetricsService
	projector *timetable.Projector
	validator *validator.Validate
	logger    *zap.Logger
	group     singleflight.Group
	cfg       TimetableServiceConfig
}

// TimetableServiceParams groups constructor dependencies.
type TimetableServiceParams struct {
	Upstream  timetableViewFetcher
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    TimetableServiceConfig
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(params TimetableServiceParams) *TimetableService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if strings.TrimSpace(cfg.DefaultBuilding) == "" {
		cfg.DefaultBuilding = timetable.AllBuildings
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &TimetableService{
		upstream:  params.Upstream,
		cache:     params.Cache,
		metrics:   params.Metrics,
		projector: timetable.NewProjector(cfg.MemoSize),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Days returns the selectable days and buildings. The default day is the first
// day published by upstream.
func (s *TimetableService) Days(ctx context.Context, token string) (*dto.AvailableDaysResponse, bool, error) {
	view, hit, err := s.view(ctx, token, "", "")
	if err != nil {
		return nil, false, err
	}
	days := view.Snapshot.AvailableDays
	if days == nil {
		days = []string{}
	}
	resp := &dto.AvailableDaysResponse{
		Days:      days,
		Buildings: s.buildings(view),
	}
	if len(days) > 0 {
		resp.DefaultDay = days[0]
	}
	return resp, hit, nil
}

// Grid projects the timetable for the requested day and building. An empty day
// selects the first available day. The boolean reports an upstream cache hit.
func (s *TimetableService) Grid(ctx context.Context, token string, query dto.TimetableQuery) (*dto.GridResponse, bool, error) {
	query, err := s.normalise(query)
	if err != nil {
		return nil, false, err
	}

	if query.Day == "" {
		days, _, err := s.Days(ctx, token)
		if err != nil {
			return nil, false, err
		}
		query.Day = days.DefaultDay
	}

	view, hit, err := s.view(ctx, token, query.Day, query.Search)
	if err != nil {
		return nil, false, err
	}

	grid := s.project(view.Snapshot, query.Day, query.Building)
	available := view.Snapshot.AvailableDays
	if available == nil {
		available = []string{}
	}
	return &dto.GridResponse{Query: query, AvailableDays: available, Grid: grid}, hit, nil
}

// Invalidate drops every cached upstream view.
func (s *TimetableService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "timetable:view:*")
}

func (s *TimetableService) normalise(query dto.TimetableQuery) (dto.TimetableQuery, error) {
	query.Day = strings.TrimSpace(query.Day)
	query.Search = strings.TrimSpace(query.Search)
	query.Building = strings.TrimSpace(query.Building)
	if query.Building == "" {
		query.Building = s.cfg.DefaultBuilding
	}
	if strings.EqualFold(query.Building, timetable.AllBuildings) {
		query.Building = timetable.AllBuildings
	}
	if err := s.validator.Struct(query); err != nil {
		return query, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	return query, nil
}

func (s *TimetableService) project(snapshot timetable.Snapshot, day, building string) *timetable.Grid {
	start := time.Now()
	grid, memoHit := s.projector.Project(snapshot, day, building)
	stats := grid.Stats
	s.metrics.ObserveProjection(memoHit, time.Since(start), stats.OccupiedCells, stats.ConflictCells, stats.SubstituteCells, stats.DoubleBookedCells)

	if !memoHit && len(grid.Warnings) > 0 {
		for _, warning := range grid.Warnings {
			msg := "schedule cannot be placed in timetable grid"
			if !warning.Unplaced() {
				msg = "schedule shown without some of its timeslots"
			}
			s.logger.Warn(msg,
				zap.Int("schedule_id", warning.ScheduleID),
				zap.String("room_id", warning.RoomID),
				zap.String("reason", warning.Reason),
				zap.Uint64("snapshot", snapshot.Fingerprint),
			)
		}
	}
	return grid
}

// view returns the upstream view for day and search, consulting the cache
// first. Concurrent misses for the same key and token share one upstream call.
func (s *TimetableService) view(ctx context.Context, token, day, search string) (*cachedView, bool, error) {
	key := viewCacheKey(day, search)

	var cached cachedView
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Debug("timetable cache unavailable", zap.String("key", key), zap.Error(err))
	} else if hit {
		return &cached, true, nil
	}

	flight := fmt.Sprintf("%s:%x", key, timetable.Fingerprint([]byte(token)))
	ch := s.group.DoChan(flight, func() (interface{}, error) {
		return s.fetch(ctx, token, key, day, search)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The shared call ran on another request's context; retry on ours
			// when only that request went away.
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				view, err := s.fetch(ctx, token, key, day, search)
				return view, false, err
			}
			return nil, false, res.Err
		}
		return res.Val.(*cachedView), false, nil
	}
}

func (s *TimetableService) fetch(ctx context.Context, token, key, day, search string) (*cachedView, error) {
	snapshot, buildings, err := s.upstream.TimetableView(ctx, token, models.TimetableViewQuery{
		Day:      day,
		Building: timetable.AllBuildings,
		Search:   search,
	})
	if err != nil {
		return nil, err
	}
	view := &cachedView{Snapshot: *snapshot, Buildings: buildings}
	view.Snapshot.EnsureFingerprint()
	if err := s.cache.Set(ctx, key, view, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("timetable cache write skipped", zap.String("key", key), zap.Error(err))
	}
	return view, nil
}

func (s *TimetableService) buildings(view *cachedView) []string {
	if len(view.Buildings) > 0 {
		return view.Buildings
	}
	return timetable.GroupRooms(view.Snapshot.Rooms, timetable.AllBuildings).Buildings()
}

// viewCacheKey keys on the exact day and search sent upstream, which matches
// both case-sensitively.
func viewCacheKey(day, search string) string {
	return fmt.Sprintf("timetable:view:%s:%s", day, search)
}
