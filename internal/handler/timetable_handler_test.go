package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genplan/genplan-web/internal/dto"
	"github.com/genplan/genplan-web/internal/middleware"
	"github.com/genplan/genplan-web/internal/models"
	"github.com/genplan/genplan-web/internal/service"
	"github.com/genplan/genplan-web/internal/web"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/timetable"
)

type timetableServiceMock struct {
	days      *dto.AvailableDaysResponse
	grid      *dto.GridResponse
	cacheHit  bool
	err       error
	lastToken string
	lastQuery dto.TimetableQuery
}

func (m *timetableServiceMock) Days(_ context.Context, token string) (*dto.AvailableDaysResponse, bool, error) {
	m.lastToken = token
	return m.days, m.cacheHit, m.err
}

func (m *timetableServiceMock) Grid(_ context.Context, token string, query dto.TimetableQuery) (*dto.GridResponse, bool, error) {
	m.lastToken = token
	m.lastQuery = query
	return m.grid, m.cacheHit, m.err
}

type exporterMock struct {
	file       *service.ExportFile
	link       *dto.ShareLinkResponse
	err        error
	lastQuery  dto.ExportQuery
	lastShared string
}

func (m *exporterMock) Export(_ context.Context, _ string, query dto.ExportQuery) (*service.ExportFile, error) {
	m.lastQuery = query
	return m.file, m.err
}

func (m *exporterMock) CreateShareLink(_ context.Context, _ string, _ dto.ShareLinkRequest) (*dto.ShareLinkResponse, error) {
	return m.link, m.err
}

func (m *exporterMock) OpenShared(_ context.Context, token string) (*service.ExportFile, error) {
	m.lastShared = token
	return m.file, m.err
}

func sampleGridResponse() *dto.GridResponse {
	reason := "Ruangan dipakai dua kelas"
	grid := timetable.Project(timetable.Input{
		Day:      "Senin",
		Building: timetable.AllBuildings,
		Rooms:    []timetable.Room{{ID: "DS-301", Building: "DS"}},
		TimeSlots: []timetable.Timeslot{
			{ID: 1, Day: "Senin", DayIndex: 0, StartTime: "07:00:00", EndTime: "07:50:00"},
		},
		Schedules: []timetable.Schedule{{
			ID: 10, RoomID: "DS-301", IsConflicted: true, Reason: &reason,
			Subject:   timetable.Subject{Name: "Kalkulus", Kelas: "A"},
			TimeSlots: []timetable.Timeslot{{ID: 1, DayIndex: 0}},
		}},
	})
	return &dto.GridResponse{
		Query:         dto.TimetableQuery{Day: "Senin", Building: timetable.AllBuildings},
		AvailableDays: []string{"Senin", "Selasa"},
		Grid:          grid,
	}
}

func withSession(c *gin.Context) {
	claims := &models.JWTClaims{UserID: "7", Role: models.RoleLecturer}
	c.Set(middleware.ContextUserKey, claims)
	c.Set(middleware.ContextSessionKey, models.Session{Claims: claims, Token: "tok"})
}

func TestTimetableHandlerGrid(t *testing.T) {
	svc := &timetableServiceMock{grid: sampleGridResponse(), cacheHit: true}
	handler := NewTimetableHandler(svc, &exporterMock{})

	c, w := newGinContext(http.MethodGet, "/timetable/grid?day=Senin&building=DS&search=kal", nil)
	withSession(c)
	middleware.WithResponseMeta()(c)
	handler.Grid(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", svc.lastToken)
	assert.Equal(t, dto.TimetableQuery{Day: "Senin", Building: "DS", Search: "kal"}, svc.lastQuery)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")

	var payload dto.GridResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	require.Len(t, payload.Grid.Rows, 1)
	assert.Equal(t, timetable.CategoryConflictWithReason, payload.Grid.Rows[0].Cells[0].Category)
}

func TestTimetableHandlerGridError(t *testing.T) {
	svc := &timetableServiceMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "Token expired")}
	handler := NewTimetableHandler(svc, &exporterMock{})

	c, w := newGinContext(http.MethodGet, "/timetable/grid", nil)
	handler.Grid(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "Token expired", envelope.Error.Message)
	assert.Equal(t, "", svc.lastToken)
}

func TestTimetableHandlerDays(t *testing.T) {
	svc := &timetableServiceMock{days: &dto.AvailableDaysResponse{Days: []string{"Senin"}, DefaultDay: "Senin", Buildings: []string{"DS"}}}
	handler := NewTimetableHandler(svc, &exporterMock{})

	c, w := newGinContext(http.MethodGet, "/timetable/days", nil)
	withSession(c)
	handler.Days(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	var days dto.AvailableDaysResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &days))
	assert.Equal(t, "Senin", days.DefaultDay)
}

func TestTimetableHandlerViewRendersPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &timetableServiceMock{
		days: &dto.AvailableDaysResponse{Days: []string{"Senin", "Selasa"}, DefaultDay: "Senin", Buildings: []string{"DS"}},
		grid: sampleGridResponse(),
	}
	handler := NewTimetableHandler(svc, &exporterMock{})

	tmpl, err := web.Templates()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	engine.SetHTMLTemplate(tmpl)
	c.Request = httptest.NewRequest(http.MethodGet, "/timetable?day=Senin", nil)
	withSession(c)

	handler.View(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Kalkulus")
	assert.Contains(t, body, "Ruangan dipakai dua kelas")
	assert.Contains(t, body, "DS-301")
}

func TestTimetableHandlerExport(t *testing.T) {
	exporter := &exporterMock{file: &service.ExportFile{
		Filename:    "jadwal_senin_all.csv",
		ContentType: "text/csv; charset=utf-8",
		Content:     []byte("Waktu,DS-301\n"),
	}}
	handler := NewTimetableHandler(&timetableServiceMock{}, exporter)

	c, w := newGinContext(http.MethodGet, "/timetable/export?day=Senin&format=csv", nil)
	withSession(c)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.lastQuery.Format)
	assert.Equal(t, "Senin", exporter.lastQuery.Day)
	assert.Equal(t, `attachment; filename="jadwal_senin_all.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Waktu,DS-301\n", w.Body.String())
}

func TestTimetableHandlerShareLink(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC()
	exporter := &exporterMock{link: &dto.ShareLinkResponse{URL: "/api/v1/timetable/shared/abc", Token: "abc", ExpiresAt: expires}}
	handler := NewTimetableHandler(&timetableServiceMock{}, exporter)

	body, _ := json.Marshal(dto.ShareLinkRequest{Day: "Senin", Format: "pdf"})
	c, w := newGinContext(http.MethodPost, "/timetable/export/link", body)
	withSession(c)
	handler.CreateShareLink(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	var link dto.ShareLinkResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &link))
	assert.Equal(t, "abc", link.Token)
}

func TestTimetableHandlerShareLinkRejectsMalformedBody(t *testing.T) {
	handler := NewTimetableHandler(&timetableServiceMock{}, &exporterMock{})

	c, w := newGinContext(http.MethodPost, "/timetable/export/link", []byte("{"))
	handler.CreateShareLink(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerShared(t *testing.T) {
	exporter := &exporterMock{err: appErrors.Clone(appErrors.ErrForbidden, "share link invalid or expired")}
	handler := NewTimetableHandler(&timetableServiceMock{}, exporter)

	c, w := newGinContext(http.MethodGet, "/timetable/shared/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Shared(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "bad", exporter.lastShared)
}
