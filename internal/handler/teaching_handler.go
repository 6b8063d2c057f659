package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumenlearn/lumen-backend/internal/middleware"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/lumenlearn/lumen-backend/internal/response"
	"github.com/lumenlearn/lumen-backend/internal/service"
	"github.com/lumenlearn/lumen-backend/internal/validator"
)

type TeachingHandler struct {
	teachingService *service.TeachingService
}

func NewTeachingHandler(teachingService *service.TeachingService) *TeachingHandler {
	return &TeachingHandler{teachingService: teachingService}
}

// Initialize godoc
// POST /api/v1/learner/teaching
func (h *TeachingHandler) Initialize(c *gin.Context) {
	var req model.InitializeTeachingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.teachingService.Initialize(c.Request.Context(), middleware.GetLearnerID(c), &req)
	if err != nil {
		failTeaching(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetSession godoc
// GET /api/v1/learner/teaching/:session_id
func (h *TeachingHandler) GetSession(c *gin.Context) {
	session, err := h.teachingService.Get(c.Request.Context(), middleware.GetLearnerID(c), c.Param("session_id"))
	if err != nil {
		failTeaching(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// UpdateMetrics godoc
// PATCH /api/v1/learner/teaching/:session_id/metrics
func (h *TeachingHandler) UpdateMetrics(c *gin.Context) {
	var req model.MetricsUpdate
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, content, err := h.teachingService.UpdateMetrics(c.Request.Context(), middleware.GetLearnerID(c), c.Param("session_id"), &req)
	if err != nil {
		failTeaching(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"session":    session,
		"adaptation": content,
	})
}

// GenerateContent godoc
// POST /api/v1/learner/teaching/:session_id/content
func (h *TeachingHandler) GenerateContent(c *gin.Context) {
	var req model.GenerateContentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	content, err := h.teachingService.GenerateAdaptiveContent(c.Request.Context(), middleware.GetLearnerID(c), c.Param("session_id"), &req)
	if err != nil {
		failTeaching(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"content": content})
}

// GetRecommendations godoc
// GET /api/v1/learner/teaching/:session_id/recommendations
func (h *TeachingHandler) GetRecommendations(c *gin.Context) {
	rec, err := h.teachingService.GetRecommendations(c.Request.Context(), middleware.GetLearnerID(c), c.Param("session_id"))
	if err != nil {
		failTeaching(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recommendation": rec})
}

// GetHistory godoc
// GET /api/v1/learner/teaching/:session_id/history
// Returns the durable adaptation trail, which survives session end.
func (h *TeachingHandler) GetHistory(c *gin.Context) {
	history, err := h.teachingService.GetHistory(c.Request.Context(), middleware.GetLearnerID(c), c.Param("session_id"))
	if err != nil {
		failTeaching(c, err)
		return
	}
	if history == nil {
		history = []model.Adaptation{}
	}
	response.Success(c, http.StatusOK, gin.H{"history": history})
}

// End godoc
// DELETE /api/v1/learner/teaching/:session_id
func (h *TeachingHandler) End(c *gin.Context) {
	if err := h.teachingService.End(c.Request.Context(), middleware.GetLearnerID(c), c.Param("session_id")); err != nil {
		failTeaching(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "teaching session ended"})
}

// failTeaching maps teaching service errors to response codes.
func failTeaching(c *gin.Context, err error) {
	if errors.Is(err, service.ErrTeachingNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrTeachingNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
