package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	"github.com/studyrhythm/studyrhythm-api/internal/service"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/response"
)

// SessionHandler handles study session endpoints.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List the caller's sessions
// @Tags Sessions
// @Produce json
// @Param subject query int false "Filter by subject"
// @Param subjectId query int false "Filter by subject (alias for subject)"
// @Param status query string false "Filter by derived status" Enums(upcoming, ongoing, completed)
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	// The documented parameter is "subject"; "subjectId" stays as an alias.
	raw := c.Query("subject")
	if raw == "" {
		raw = c.Query("subjectId")
	}
	if raw != "" {
		subjectID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || subjectID <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject parameter"))
			return
		}
		filter.SubjectID = subjectID
	}
	switch status := models.SessionStatus(c.Query("status")); status {
	case "", models.StatusUpcoming, models.StatusOngoing, models.StatusCompleted:
		filter.Status = status
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be upcoming, ongoing or completed"))
		return
	}

	sessions, err := h.service.List(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// ListToday godoc
// @Summary List today's sessions with topic completion counts
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/today [get]
func (h *SessionHandler) ListToday(c *gin.Context) {
	sessions, err := h.service.ListToday(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// Get godoc
// @Summary Get a session with its covered topics
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.service.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Create godoc
// @Summary Schedule a study session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Complete godoc
// @Summary Mark a session as completed
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.service.Complete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AttachTopic godoc
// @Summary Link a topic to a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param payload body service.AttachSessionTopicRequest true "Topic link payload"
// @Success 201 {object} response.Envelope
// @Router /sessions/{id}/topics [post]
func (h *SessionHandler) AttachTopic(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AttachSessionTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	st, err := h.service.AttachTopic(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, st)
}

// ListTopics godoc
// @Summary List the topics covered by a session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/topics [get]
func (h *SessionHandler) ListTopics(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	topics, err := h.service.ListTopics(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics)
}
