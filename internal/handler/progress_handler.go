package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	"github.com/studyrhythm/studyrhythm-api/internal/service"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/response"
)

type progressService interface {
	Overview(ctx context.Context, userID int64) (*models.ProgressOverview, bool, error)
	Export(ctx context.Context, userID int64, format service.ExportFormat) (*service.ExportResult, error)
}

// ProgressHandler wires the aggregation engine to HTTP endpoints.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Overview godoc
// @Summary Per-subject and total study progress
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	overview, hit, err := h.service.Overview(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, map[string]interface{}{"cache_hit": hit})
}

// Export godoc
// @Summary Download the progress overview as CSV or PDF
// @Tags Progress
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "Export format" Enums(csv, pdf) default(csv)
// @Success 200 {file} file
// @Router /progress/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))
	result, err := h.service.Export(c.Request.Context(), currentUserID(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
