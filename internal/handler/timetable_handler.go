package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/genplan/genplan-web/internal/dto"
	"github.com/genplan/genplan-web/internal/middleware"
	"github.com/genplan/genplan-web/internal/service"
	"github.com/genplan/genplan-web/internal/web"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/response"
)

type timetableService interface {
	Days(ctx context.Context, token string) (*dto.AvailableDaysResponse, bool, error)
	Grid(ctx context.Context, token string, query dto.TimetableQuery) (*dto.GridResponse, bool, error)
}

type timetableExporter interface {
	Export(ctx context.Context, token string, query dto.ExportQuery) (*service.ExportFile, error)
	CreateShareLink(ctx context.Context, token string, req dto.ShareLinkRequest) (*dto.ShareLinkResponse, error)
	OpenShared(ctx context.Context, token string) (*service.ExportFile, error)
}

// TimetableHandler serves the timetable grid as JSON, HTML and downloads.
type TimetableHandler struct {
	timetable timetableService
	exporter  timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetable timetableService, exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{timetable: timetable, exporter: exporter}
}

// Days godoc
// @Summary Selectable days and buildings
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/days [get]
func (h *TimetableHandler) Days(c *gin.Context) {
	session := sessionFromContext(c)
	days, cacheHit, err := h.timetable.Days(c.Request.Context(), session.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, days, nil, responseMeta(c))
}

// Grid godoc
// @Summary Timetable grid for one day
// @Tags Timetable
// @Produce json
// @Param day query string false "Day name, defaults to the first available day"
// @Param building query string false "Building filter or all"
// @Param search query string false "Subject or lecturer search"
// @Success 200 {object} response.Envelope
// @Router /timetable/grid [get]
func (h *TimetableHandler) Grid(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	start := time.Now()
	session := sessionFromContext(c)
	grid, cacheHit, err := h.timetable.Grid(c.Request.Context(), session.Token, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := responseMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, grid, nil, meta)
}

// View renders the grid page.
func (h *TimetableHandler) View(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	session := sessionFromContext(c)
	ctx := c.Request.Context()

	days, _, err := h.timetable.Days(ctx, session.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, cacheHit, err := h.timetable.Grid(ctx, session.Token, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, web.TimetableTemplate, web.TimetablePage{
		Title:         "Jadwal " + grid.Query.Day,
		Day:           grid.Query.Day,
		Building:      grid.Query.Building,
		Search:        grid.Query.Search,
		AvailableDays: days.Days,
		Buildings:     days.Buildings,
		Grid:          grid.Grid,
		CacheHit:      cacheHit,
	})
}

// Export godoc
// @Summary Download the timetable grid
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param day query string false "Day name"
// @Param building query string false "Building filter or all"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	session := sessionFromContext(c)
	file, err := h.exporter.Export(c.Request.Context(), session.Token, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// CreateShareLink godoc
// @Summary Create a signed share link for a timetable export
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ShareLinkRequest true "Share link payload"
// @Success 201 {object} response.Envelope
// @Router /timetable/export/link [post]
func (h *TimetableHandler) CreateShareLink(c *gin.Context) {
	var req dto.ShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	session := sessionFromContext(c)
	link, err := h.exporter.CreateShareLink(c.Request.Context(), session.Token, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, link, nil)
}

// Shared godoc
// @Summary Download a shared timetable export
// @Tags Timetable
// @Param token path string true "Share token"
// @Success 200 {file} file
// @Router /timetable/shared/{token} [get]
func (h *TimetableHandler) Shared(c *gin.Context) {
	file, err := h.exporter.OpenShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
