package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionType enumerates the purposes an adaptive assessment can serve.
type SessionType string

const (
	SessionTypeDiagnostic  SessionType = "DIAGNOSTIC"
	SessionTypeFormative   SessionType = "FORMATIVE"
	SessionTypeSummative   SessionType = "SUMMATIVE"
	SessionTypeRemediation SessionType = "REMEDIATION"
	SessionTypeEnrichment  SessionType = "ENRICHMENT"
)

// NextAction is the controller's decision after grading a response.
type NextAction string

const (
	NextActionContinue    NextAction = "CONTINUE"
	NextActionRemediation NextAction = "REMEDIATION"
	NextActionComplete    NextAction = "COMPLETE"
)

// AssessmentSession represents one adaptive test instance for a learner.
// Difficulty and confidence both live in [0.1, 1.0] after every update; once
// Active is false the record is immutable.
type AssessmentSession struct {
	ID                uuid.UUID   `json:"id"`
	LearnerID         uuid.UUID   `json:"learner_id"`
	SubjectID         uuid.UUID   `json:"subject_id"`
	SessionType       SessionType `json:"session_type"`
	CurrentDifficulty float64     `json:"current_difficulty"`
	Confidence        float64     `json:"confidence"`
	TotalQuestions    int         `json:"total_questions"`
	CorrectAnswers    int         `json:"correct_answers"`
	RemediationNeeded bool        `json:"remediation_needed"`
	Active            bool        `json:"active"`
	CreatedAt         time.Time   `json:"created_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
}

// Accuracy returns correct/total, or 0 when no questions were asked yet.
func (s *AssessmentSession) Accuracy() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions)
}

// CreateAssessmentRequest is the payload for starting an assessment session.
type CreateAssessmentRequest struct {
	SubjectID   uuid.UUID `json:"subject_id" binding:"required"`
	SessionType string    `json:"session_type" binding:"required,oneof=DIAGNOSTIC FORMATIVE SUMMATIVE REMEDIATION ENRICHMENT"`
}
