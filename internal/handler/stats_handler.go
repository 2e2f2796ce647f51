package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/response"
)

type statsService interface {
	Snapshot(ctx context.Context, userID int64) (*models.StatsSnapshot, bool, error)
	Weekly(ctx context.Context, userID int64) (*models.WeeklyStats, bool, error)
}

// StatsHandler wires the running totals and weekly rollup to HTTP.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Snapshot godoc
// @Summary Formatted running study totals
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Snapshot(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	snapshot, hit, err := h.service.Snapshot(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, map[string]interface{}{"cache_hit": hit})
}

// Weekly godoc
// @Summary Four rolling 7-day study windows bucketed by subject
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/weekly [get]
func (h *StatsHandler) Weekly(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	weekly, hit, err := h.service.Weekly(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weekly, map[string]interface{}{"cache_hit": hit})
}
