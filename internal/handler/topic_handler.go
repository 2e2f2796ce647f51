package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyrhythm/studyrhythm-api/internal/service"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/response"
)

// TopicHandler handles topic endpoints.
type TopicHandler struct {
	service *service.TopicService
}

// NewTopicHandler constructs a topic handler.
func NewTopicHandler(svc *service.TopicService) *TopicHandler {
	return &TopicHandler{service: svc}
}

// ListBySubject godoc
// @Summary List a subject's topics
// @Tags Topics
// @Produce json
// @Security BearerAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/topics [get]
func (h *TopicHandler) ListBySubject(c *gin.Context) {
	subjectID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	topics, err := h.service.ListBySubject(c.Request.Context(), currentUserID(c), subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics)
}

// Create godoc
// @Summary Create a topic under a subject
// @Tags Topics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Subject ID"
// @Param payload body service.CreateTopicRequest true "Topic payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/{id}/topics [post]
func (h *TopicHandler) Create(c *gin.Context) {
	subjectID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	topic, err := h.service.Create(c.Request.Context(), currentUserID(c), subjectID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// Complete godoc
// @Summary Mark a topic as completed
// @Tags Topics
// @Produce json
// @Security BearerAuth
// @Param id path int true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id}/complete [post]
func (h *TopicHandler) Complete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	topic, err := h.service.Complete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic)
}

// Delete godoc
// @Summary Delete a topic
// @Tags Topics
// @Security BearerAuth
// @Param id path int true "Topic ID"
// @Success 204
// @Router /topics/{id} [delete]
func (h *TopicHandler) Delete(c *gin.Context) {
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
