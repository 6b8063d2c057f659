package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsSnapshot is a point-in-time derived metric set for an assessment
// session. Snapshots are appended after every response, never overwritten,
// forming a time series per session.
type AnalyticsSnapshot struct {
	ID                  uuid.UUID      `json:"id"`
	SessionID           uuid.UUID      `json:"session_id"`
	LearningVelocity    float64        `json:"learning_velocity"`
	RetentionRate       float64        `json:"retention_rate"`
	EngagementScore     float64        `json:"engagement_score"`
	ConfidenceLevel     float64        `json:"confidence_level"`
	DifficultyDeviation float64        `json:"difficulty_deviation"`
	MasteryProgression  float64        `json:"mastery_progression"`
	TimeEfficiency      float64        `json:"time_efficiency"`
	ErrorPatterns       map[string]int `json:"error_patterns"`
	CreatedAt           time.Time      `json:"created_at"`
}

// RecommendationPriority ranks study recommendations.
type RecommendationPriority string

const (
	RecommendationPriorityHigh   RecommendationPriority = "HIGH"
	RecommendationPriorityMedium RecommendationPriority = "MEDIUM"
)

// Recommendation is a study suggestion produced at assessment completion.
type Recommendation struct {
	Area     string                 `json:"area"`
	Priority RecommendationPriority `json:"priority"`
	Message  string                 `json:"message"`
}
