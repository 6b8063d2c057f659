package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates supported generated question formats.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionTypeMathematical   QuestionType = "MATHEMATICAL"
)

// CognitiveLevel follows Bloom's taxonomy.
type CognitiveLevel string

const (
	CognitiveLevelRemember   CognitiveLevel = "REMEMBER"
	CognitiveLevelUnderstand CognitiveLevel = "UNDERSTAND"
	CognitiveLevelApply      CognitiveLevel = "APPLY"
	CognitiveLevelAnalyze    CognitiveLevel = "ANALYZE"
	CognitiveLevelEvaluate   CognitiveLevel = "EVALUATE"
	CognitiveLevelCreate     CognitiveLevel = "CREATE"
)

// Question is one generated question attached to an assessment session.
// Created once per adaptation step and never mutated afterwards.
type Question struct {
	ID               uuid.UUID       `json:"id"`
	SessionID        uuid.UUID       `json:"session_id"`
	QuestionType     QuestionType    `json:"question_type"`
	Difficulty       float64         `json:"difficulty"`
	CognitiveLevel   CognitiveLevel  `json:"cognitive_level"`
	EstimatedSeconds int             `json:"estimated_seconds"`
	OrderNum         int             `json:"order_num"`
	Content          json.RawMessage `json:"content"`
	CreatedAt        time.Time       `json:"created_at"`
}

// QuestionContent is the opaque payload stored in Question.Content.
type QuestionContent struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Objective     string   `json:"objective,omitempty"`
}

// QuestionParams are the adaptation parameters requested from the LLM before
// content generation.
type QuestionParams struct {
	QuestionType     QuestionType   `json:"question_type"`
	Difficulty       float64        `json:"difficulty"`
	CognitiveLevel   CognitiveLevel `json:"cognitive_level"`
	EstimatedSeconds int            `json:"estimated_seconds"`
	Objective        string         `json:"objective,omitempty"`
}
