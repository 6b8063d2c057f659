package model

import (
	"time"

	"github.com/google/uuid"
)

// PathwayStrengths are the learner's relative strengths per ingestion
// channel, each in [0,1]. Derived from historical analytics.
type PathwayStrengths struct {
	Visual      float64 `json:"visual"`
	Auditory    float64 `json:"auditory"`
	Kinesthetic float64 `json:"kinesthetic"`
	Reading     float64 `json:"reading"`
}

// Dominant returns the strongest pathway name and its strength.
func (p PathwayStrengths) Dominant() (string, float64) {
	name, best := "visual", p.Visual
	if p.Auditory > best {
		name, best = "auditory", p.Auditory
	}
	if p.Kinesthetic > best {
		name, best = "kinesthetic", p.Kinesthetic
	}
	if p.Reading > best {
		name, best = "reading", p.Reading
	}
	return name, best
}

// LearningDimensions are cognitive/social profile scores in [0,1].
type LearningDimensions struct {
	Analytical float64 `json:"analytical"`
	Social     float64 `json:"social"`
	Solitary   float64 `json:"solitary"`
}

// PredictionHorizon scopes a struggle prediction in time.
type PredictionHorizon string

const (
	PredictionHorizonImmediate PredictionHorizon = "IMMEDIATE"
	PredictionHorizonShortTerm PredictionHorizon = "SHORT_TERM"
	PredictionHorizonLongTerm  PredictionHorizon = "LONG_TERM"
)

// StrugglePrediction flags an area where the learner model expects
// difficulty soon.
type StrugglePrediction struct {
	Area       string            `json:"area"`
	Horizon    PredictionHorizon `json:"horizon"`
	Confidence float64           `json:"confidence"`
	Rationale  string            `json:"rationale,omitempty"`
}

// LearnerProfile is the read model both controllers seed from.
type LearnerProfile struct {
	LearnerID   uuid.UUID            `json:"learner_id"`
	Pathways    PathwayStrengths     `json:"pathways"`
	Dimensions  LearningDimensions   `json:"dimensions"`
	Strengths   []string             `json:"strengths"`
	Weaknesses  []string             `json:"weaknesses"`
	Predictions []StrugglePrediction `json:"predictions"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
