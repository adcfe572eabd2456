package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genplan/genplan-web/internal/models"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/timetable"
)

const viewPayload = `{
	"schedules": [{"id": 10, "room_id": "DS-301", "type": 0, "is_conflicted": false,
		"subject": {"name": "Kalkulus", "code": "MA101", "kelas": "A"},
		"time_slots": [{"id": 1, "day_index": 0}]}],
	"rooms": [{"id": "DS-301", "building": "DS"}],
	"time_slots": [{"id": 1, "day": "Senin", "day_index": 0, "start_time": "07:00:00", "end_time": "07:50:00"}],
	"filters": {"available_days": ["Senin", "Selasa"], "buildings": ["DS"]}
}`

type recordingObserver struct {
	endpoints []string
	statuses  []int
}

func (o *recordingObserver) ObserveUpstream(endpoint string, status int, _ time.Duration) {
	o.endpoints = append(o.endpoints, endpoint)
	o.statuses = append(o.statuses, status)
}

func TestTimetableViewForwardsQueryAndToken(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, viewPayload)
	}))
	defer server.Close()

	observer := &recordingObserver{}
	repo := NewGenPlanRepository(server.URL+"/", server.Client(), observer, nil)

	snapshot, buildings, err := repo.TimetableView(context.Background(), "token-1", models.TimetableViewQuery{
		Day:      "Senin",
		Building: timetable.AllBuildings,
		Search:   "kalkulus",
	})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, pathTimetableView, captured.URL.Path)
	assert.Equal(t, "Senin", captured.URL.Query().Get("day"))
	assert.Equal(t, "kalkulus", captured.URL.Query().Get("search"))
	assert.Empty(t, captured.URL.Query().Get("building"))
	assert.Equal(t, "Bearer token-1", captured.Header.Get("Authorization"))

	assert.Len(t, snapshot.Schedules, 1)
	assert.Equal(t, []string{"Senin", "Selasa"}, snapshot.AvailableDays)
	assert.Equal(t, timetable.Fingerprint([]byte(viewPayload)), snapshot.Fingerprint)
	assert.Equal(t, []string{"DS"}, buildings)
	assert.Equal(t, []string{pathTimetableView}, observer.endpoints)
	assert.Equal(t, []int{http.StatusOK}, observer.statuses)
}

func TestUpstreamStatusMapping(t *testing.T) {
	cases := []struct {
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{http.StatusUnauthorized, `{"detail":"Token expired"}`, appErrors.ErrUnauthorized.Code, "Token expired"},
		{http.StatusForbidden, `{"message":"admin only"}`, appErrors.ErrForbidden.Code, "admin only"},
		{http.StatusNotFound, ``, appErrors.ErrNotFound.Code, ""},
		{http.StatusConflict, `{"error":"already running"}`, appErrors.ErrConflict.Code, "already running"},
		{http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","semester"]}]}`, appErrors.ErrValidation.Code, `[{"loc":["body","semester"]}]`},
		{http.StatusInternalServerError, `oops`, appErrors.ErrBadGateway.Code, "genplan api responded with status 500"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, tc.body)
		}))
		repo := NewGenPlanRepository(server.URL, server.Client(), nil, nil)

		_, err := repo.CheckConflicts(context.Background(), "", map[string]any{})
		server.Close()

		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, tc.wantCode, appErr.Code, "status %d", tc.status)
		if tc.wantMsg != "" {
			assert.Equal(t, tc.wantMsg, appErr.Message, "status %d", tc.status)
		}
	}
}

func TestGenerateSchedulePostsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathGenerateHybrid, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "genap", body["semester"])
		_, _ = io.WriteString(w, `{"status":"ok","fitness":0.98}`)
	}))
	defer server.Close()

	repo := NewGenPlanRepository(server.URL, server.Client(), nil, nil)
	result, err := repo.GenerateSchedule(context.Background(), "t", map[string]any{"semester": "genap"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","fitness":0.98}`, string(result))
}

func TestInvalidPayloadsAreBadGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"schedules": "nope"`)
	}))
	defer server.Close()

	repo := NewGenPlanRepository(server.URL, server.Client(), nil, nil)
	_, _, err := repo.TimetableView(context.Background(), "", models.TimetableViewQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadGateway.Code, appErrors.FromError(err).Code)

	_, err = repo.ResolveConflicts(context.Background(), "", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadGateway.Code, appErrors.FromError(err).Code)
}

func TestMissingBaseURLIsUnavailable(t *testing.T) {
	repo := NewGenPlanRepository("", nil, nil, nil)
	_, _, err := repo.TimetableView(context.Background(), "", models.TimetableViewQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
}

func TestPing(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	repo := NewGenPlanRepository(server.URL, nil, nil, nil)
	assert.NoError(t, repo.Ping(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	assert.Error(t, repo.Ping(context.Background()))

	server.Close()
	assert.Error(t, repo.Ping(context.Background()))
}
