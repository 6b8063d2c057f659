package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumenlearn/lumen-backend/internal/middleware"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/lumenlearn/lumen-backend/internal/response"
	"github.com/lumenlearn/lumen-backend/internal/service"
	"github.com/lumenlearn/lumen-backend/internal/validator"
)

type AssessmentHandler struct {
	assessmentService *service.AssessmentService
}

func NewAssessmentHandler(assessmentService *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// CreateSession godoc
// POST /api/v1/learner/assessments
func (h *AssessmentHandler) CreateSession(c *gin.Context) {
	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.assessmentService.CreateSession(c.Request.Context(), middleware.GetLearnerID(c), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetSession godoc
// GET /api/v1/learner/assessments/:session_id
func (h *AssessmentHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.assessmentService.GetSession(c.Request.Context(), middleware.GetLearnerID(c), sessionID)
	if err != nil {
		failAssessment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// NextQuestion godoc
// POST /api/v1/learner/assessments/:session_id/questions
func (h *AssessmentHandler) NextQuestion(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	question, err := h.assessmentService.NextQuestion(c.Request.Context(), middleware.GetLearnerID(c), sessionID)
	if err != nil {
		failAssessment(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": presentQuestion(question)})
}

// ListQuestions godoc
// GET /api/v1/learner/assessments/:session_id/questions
func (h *AssessmentHandler) ListQuestions(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.assessmentService.ListQuestions(c.Request.Context(), middleware.GetLearnerID(c), sessionID)
	if err != nil {
		failAssessment(c, err)
		return
	}

	presented := make([]gin.H, 0, len(questions))
	for i := range questions {
		presented = append(presented, presentQuestion(&questions[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"questions": presented})
}

// SubmitResponse godoc
// POST /api/v1/learner/assessments/:session_id/responses
func (h *AssessmentHandler) SubmitResponse(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.assessmentService.SubmitResponse(c.Request.Context(), middleware.GetLearnerID(c), sessionID, &req)
	if err != nil {
		failAssessment(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// CompleteSession godoc
// POST /api/v1/learner/assessments/:session_id/complete
func (h *AssessmentHandler) CompleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.assessmentService.CompleteSession(c.Request.Context(), middleware.GetLearnerID(c), sessionID)
	if err != nil {
		failAssessment(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// ListAnalytics godoc
// GET /api/v1/learner/assessments/:session_id/analytics
func (h *AssessmentHandler) ListAnalytics(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snapshots, err := h.assessmentService.ListAnalytics(c.Request.Context(), middleware.GetLearnerID(c), sessionID)
	if err != nil {
		failAssessment(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []model.AnalyticsSnapshot{}
	}
	response.Success(c, http.StatusOK, gin.H{"snapshots": snapshots})
}

// ListGaps godoc
// GET /api/v1/learner/gaps
func (h *AssessmentHandler) ListGaps(c *gin.Context) {
	gaps, err := h.assessmentService.ListGaps(c.Request.Context(), middleware.GetLearnerID(c), 20)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if gaps == nil {
		gaps = []model.LearningGap{}
	}
	response.Success(c, http.StatusOK, gin.H{"gaps": gaps})
}

// presentQuestion strips grading fields from the stored content so the
// correct answer never reaches the client before submission.
func presentQuestion(q *model.Question) gin.H {
	var content model.QuestionContent
	_ = json.Unmarshal(q.Content, &content)
	content.CorrectAnswer = ""
	content.Explanation = ""

	return gin.H{
		"id":                q.ID,
		"session_id":        q.SessionID,
		"question_type":     q.QuestionType,
		"difficulty":        q.Difficulty,
		"cognitive_level":   q.CognitiveLevel,
		"estimated_seconds": q.EstimatedSeconds,
		"order_num":         q.OrderNum,
		"content":           content,
		"created_at":        q.CreatedAt,
	}
}

// failAssessment maps assessment service errors to response codes.
func failAssessment(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrSessionBusy):
		response.Fail(c, http.StatusConflict, response.ErrSessionBusy)
	case errors.Is(err, service.ErrQuestionNotInSession):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrQuestionNotInSession)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
