package model

import (
	"time"

	"github.com/google/uuid"
)

// GapType enumerates the weakness areas a completed assessment can flag.
type GapType string

const (
	GapTypeConceptualUnderstanding GapType = "CONCEPTUAL_UNDERSTANDING"
	GapTypeTimeManagement          GapType = "TIME_MANAGEMENT"
)

// GapSeverity enumerates learning gap severities.
type GapSeverity string

const (
	GapSeverityLow    GapSeverity = "LOW"
	GapSeverityMedium GapSeverity = "MEDIUM"
	GapSeverityHigh   GapSeverity = "HIGH"
)

// LearningGap is a diagnostic record created when a completed assessment
// session shows persistently weak retention or time efficiency. Created at
// session completion and never mutated afterwards.
type LearningGap struct {
	ID                 uuid.UUID   `json:"id"`
	SessionID          uuid.UUID   `json:"session_id"`
	LearnerID          uuid.UUID   `json:"learner_id"`
	SubjectID          uuid.UUID   `json:"subject_id"`
	GapType            GapType     `json:"gap_type"`
	Severity           GapSeverity `json:"severity"`
	RecommendedActions []string    `json:"recommended_actions"`
	CreatedAt          time.Time   `json:"created_at"`
}
