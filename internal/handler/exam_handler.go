package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyrhythm/studyrhythm-api/internal/service"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/response"
)

// ExamHandler handles exam endpoints.
type ExamHandler struct {
	service *service.ExamService
}

// NewExamHandler constructs an exam handler.
func NewExamHandler(svc *service.ExamService) *ExamHandler {
	return &ExamHandler{service: svc}
}

// List godoc
// @Summary List the caller's exams with readiness progress
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	exams, err := h.service.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams)
}

// ListUpcoming godoc
// @Summary List the next exams dated today or later
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams/upcoming [get]
func (h *ExamHandler) ListUpcoming(c *gin.Context) {
	exams, err := h.service.ListUpcoming(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams)
}

// Get godoc
// @Summary Get an exam with progress and covered topics
// @Tags Exams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	exam, err := h.service.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam)
}

// Create godoc
// @Summary Create an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Delete godoc
// @Summary Delete an exam
// @Tags Exams
// @Security BearerAuth
// @Param id path int true "Exam ID"
// @Success 204
// @Router /exams/{id} [delete]
func (h *ExamHandler) Delete(c *gin.Context) {
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
// @Summary Link a topic to an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Exam ID"
// @Param payload body service.AttachExamTopicRequest true "Topic link payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/topics [post]
func (h *ExamHandler) AttachTopic(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AttachExamTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	et, err := h.service.AttachTopic(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, et)
}
