package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumenlearn/lumen-backend/internal/middleware"
	"github.com/lumenlearn/lumen-backend/internal/response"
	"github.com/lumenlearn/lumen-backend/internal/service"
)

type LearnerHandler struct {
	learnerModel *service.LearnerModelService
}

func NewLearnerHandler(learnerModel *service.LearnerModelService) *LearnerHandler {
	return &LearnerHandler{learnerModel: learnerModel}
}

// GetProfile godoc
// GET /api/v1/learner/profile
func (h *LearnerHandler) GetProfile(c *gin.Context) {
	profile, err := h.learnerModel.GetProfile(c.Request.Context(), middleware.GetLearnerID(c))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// RefreshProfile godoc
// POST /api/v1/learner/profile/refresh
func (h *LearnerHandler) RefreshProfile(c *gin.Context) {
	profile, err := h.learnerModel.Refresh(c.Request.Context(), middleware.GetLearnerID(c))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}
