package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genplan/genplan-web/internal/dto"
	"github.com/genplan/genplan-web/internal/models"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/response"
)

type scheduleGeneratorService interface {
	Generate(ctx context.Context, session models.Session, req dto.GenerateScheduleRequest) (*models.GenerationJob, error)
	Job(ctx context.Context, id string) (*models.GenerationJob, error)
	Jobs(ctx context.Context) []models.GenerationJob
	CheckConflicts(ctx context.Context, session models.Session, req dto.ConflictCheckRequest) (json.RawMessage, error)
	ResolveConflicts(ctx context.Context, session models.Session, req dto.ResolveConflictsRequest) (json.RawMessage, error)
}

// ScheduleGeneratorHandler exposes generation and conflict endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGeneratorService
}

// NewScheduleGeneratorHandler constructs handler.
func NewScheduleGeneratorHandler(service scheduleGeneratorService) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: service}
}

// Generate godoc
// @Summary Queue hybrid schedule generation
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generator configuration"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	job, err := h.service.Generate(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.GenerationJobResponse{Job: job})
}

// Job godoc
// @Summary Generation job status
// @Tags Scheduler
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/generate/{jobId} [get]
func (h *ScheduleGeneratorHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.GenerationJobResponse{Job: job}, nil)
}

// Jobs godoc
// @Summary Retained generation jobs
// @Tags Scheduler
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/generate [get]
func (h *ScheduleGeneratorHandler) Jobs(c *gin.Context) {
	jobs := h.service.Jobs(c.Request.Context())
	response.JSON(c, http.StatusOK, jobs, &models.Pagination{Page: 1, PageSize: len(jobs), TotalCount: len(jobs)})
}

// CheckConflicts godoc
// @Summary Re-run conflict detection upstream
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest false "Scope"
// @Success 200 {object} response.Envelope
// @Router /schedules/check-conflicts [post]
func (h *ScheduleGeneratorHandler) CheckConflicts(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
			return
		}
	}
	result, err := h.service.CheckConflicts(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.UpstreamResult{Result: result}, nil)
}

// ResolveConflicts godoc
// @Summary Resolve conflicts upstream
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.ResolveConflictsRequest true "Schedules to resolve"
// @Success 200 {object} response.Envelope
// @Router /schedules/resolve-conflicts [post]
func (h *ScheduleGeneratorHandler) ResolveConflicts(c *gin.Context) {
	var req dto.ResolveConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.service.ResolveConflicts(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.UpstreamResult{Result: result}, nil)
}
