package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Response is a learner's answer to exactly one question. Immutable once
// created; always references a question in the same session.
type Response struct {
	ID           uuid.UUID       `json:"id"`
	SessionID    uuid.UUID       `json:"session_id"`
	QuestionID   uuid.UUID       `json:"question_id"`
	Answer       json.RawMessage `json:"answer"`
	IsCorrect    bool            `json:"is_correct"`
	Confidence   float64         `json:"confidence"`
	TimeSpentSec int             `json:"time_spent_sec"`
	Attempts     int             `json:"attempts"`
	HintsUsed    int             `json:"hints_used"`
	Feedback     string          `json:"feedback"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SubmitResponseRequest is the payload for grading a learner's answer.
type SubmitResponseRequest struct {
	QuestionID   uuid.UUID       `json:"question_id" binding:"required"`
	Answer       json.RawMessage `json:"answer" binding:"required"`
	TimeSpentSec int             `json:"time_spent_sec" binding:"min=0"`
	Attempts     int             `json:"attempts" binding:"min=0"`
	HintsUsed    int             `json:"hints_used" binding:"min=0"`
	Confidence   float64         `json:"confidence" binding:"min=0,max=1"`
}
