package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classgrid-api/internal/dto"
	"github.com/noah-isme/classgrid-api/internal/middleware"
	"github.com/noah-isme/classgrid-api/internal/models"
	"github.com/noah-isme/classgrid-api/internal/service"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
	"github.com/noah-isme/classgrid-api/pkg/response"
)

const maxCatalogSections = 5000

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.ScheduleProposalResponse, error)
	GetProposal(ctx context.Context, proposalID string) (*dto.ScheduleProposalResponse, error)
	Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.ScheduleProposalResponse, *dto.OptimizationJobResponse, error)
	GetJob(ctx context.Context, jobID string) (*dto.OptimizationJobResponse, error)
	Save(ctx context.Context, req dto.SaveScheduleRequest) (*dto.SaveScheduleResponse, error)
	List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error)
	GetAssignments(ctx context.Context, runID string) ([]models.ScheduleRunAssignment, error)
	Delete(ctx context.Context, runID string) error
}

type scheduleExporter interface {
	Export(ctx context.Context, req dto.ExportScheduleRequest) (*dto.ExportScheduleResponse, error)
	Open(ctx context.Context, token string) (*service.ExportFile, error)
}

// ScheduleGeneratorHandler exposes scheduler endpoints.
type ScheduleGeneratorHandler struct {
	service  scheduleGenerator
	exporter scheduleExporter
}

// NewScheduleGeneratorHandler constructs the handler. The exporter is optional.
func NewScheduleGeneratorHandler(svc scheduleGenerator, exporter scheduleExporter) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate a schedule proposal
// @Description Builds the initial greedy schedule for a term and optionally runs the repair optimizer. The catalog is read from storage unless provided inline.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generate schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if req.Catalog != nil && len(req.Catalog.Sections) > maxCatalogSections {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("catalog exceeds %d sections", maxCatalogSections)))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProposal(c, result)
}

// Proposal godoc
// @Summary Get a schedule proposal
// @Tags Scheduler
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /schedules/proposals/{id} [get]
func (h *ScheduleGeneratorHandler) Proposal(c *gin.Context) {
	result, err := h.service.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProposal(c, result)
}

// Optimize godoc
// @Summary Optimize a schedule proposal
// @Description Runs the repair and improvement passes on an existing proposal. With async=true the run is queued and a job is returned.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.OptimizeScheduleRequest false "Optimize payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /schedules/proposals/{id}/optimize [post]
func (h *ScheduleGeneratorHandler) Optimize(c *gin.Context) {
	var req dto.OptimizeScheduleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimize payload"))
			return
		}
	}
	req.ProposalID = c.Param("id")

	proposal, job, err := h.service.Optimize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if job != nil {
		c.Header("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(jobsPath(c), "/"), job.JobID))
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}
	h.respondProposal(c, proposal)
}

// Job godoc
// @Summary Get an optimization job
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/jobs/{id} [get]
func (h *ScheduleGeneratorHandler) Job(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Export godoc
// @Summary Export a schedule proposal
// @Description Renders the proposal report as CSV or PDF and returns a signed download link.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.ExportScheduleRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/proposals/{id}/export [post]
func (h *ScheduleGeneratorHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	var req dto.ExportScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	req.ProposalID = c.Param("id")
	result, err := h.exporter.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported schedule via signed token
// @Tags Scheduler
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /schedules/exports/{token} [get]
func (h *ScheduleGeneratorHandler) Download(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.exporter.Open(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Body.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, -1, file.ContentType, file.Body, nil)
}

// Save godoc
// @Summary Save a proposal as a schedule run
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.SaveScheduleRequest true "Save schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/save [post]
func (h *ScheduleGeneratorHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	if req.Publish && !canPublish(claimsFromContext(c)) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only admins may publish schedules"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Runs godoc
// @Summary List saved schedule runs for a term
// @Tags Scheduler
// @Produce json
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs [get]
func (h *ScheduleGeneratorHandler) Runs(c *gin.Context) {
	var query dto.ScheduleRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	runs, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, &models.Pagination{Page: 1, PageSize: len(runs), TotalCount: len(runs)})
}

// Assignments godoc
// @Summary Get placements stored for a schedule run
// @Tags Scheduler
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/assignments [get]
func (h *ScheduleGeneratorHandler) Assignments(c *gin.Context) {
	items, err := h.service.GetAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Delete godoc
// @Summary Delete a draft schedule run
// @Tags Scheduler
// @Param id path string true "Run ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schedules/runs/{id} [delete]
func (h *ScheduleGeneratorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ScheduleGeneratorHandler) respondProposal(c *gin.Context, p *dto.ScheduleProposalResponse) {
	middleware.SetMeta(c, "revision", p.Revision)
	middleware.SetMeta(c, "expiresAt", p.ExpiresAt)
	response.JSON(c, http.StatusOK, p, nil, middleware.ExtractMeta(c))
}

func canPublish(claims *models.JWTClaims) bool {
	return claims != nil && claims.Role == models.RoleAdmin
}

func jobsPath(c *gin.Context) string {
	route := c.FullPath()
	if idx := strings.Index(route, "/schedules/"); idx >= 0 {
		return route[:idx] + "/schedules/jobs"
	}
	return "/schedules/jobs"
}
