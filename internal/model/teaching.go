package model

import (
	"time"

	"github.com/google/uuid"
)

// ─── Teaching method ────────────────────────────────────────────────

// MethodType names the broad instructional strategy in use.
type MethodType string

const (
	MethodTypeVisual      MethodType = "VISUAL"
	MethodTypeAuditory    MethodType = "AUDITORY"
	MethodTypeKinesthetic MethodType = "KINESTHETIC"
	MethodTypeAnalytical  MethodType = "ANALYTICAL"
)

// Approach describes how new material is introduced.
type Approach string

const (
	ApproachDirect     Approach = "DIRECT"
	ApproachDiscovery  Approach = "DISCOVERY"
	ApproachStructured Approach = "STRUCTURED"
	ApproachHandsOn    Approach = "HANDS_ON"
)

// Pacing describes delivery speed.
type Pacing string

const (
	PacingSlow     Pacing = "SLOW"
	PacingModerate Pacing = "MODERATE"
	PacingFast     Pacing = "FAST"
)

// Reinforcement describes how much repetition the method applies.
type Reinforcement string

const (
	ReinforcementMinimal   Reinforcement = "MINIMAL"
	ReinforcementModerate  Reinforcement = "MODERATE"
	ReinforcementExtensive Reinforcement = "EXTENSIVE"
)

// Modality describes the content delivery channel.
type Modality string

const (
	ModalityVisual      Modality = "VISUAL"
	ModalityAuditory    Modality = "AUDITORY"
	ModalityInteractive Modality = "INTERACTIVE"
	ModalityTextual     Modality = "TEXTUAL"
	ModalityMixed       Modality = "MIXED"
)

// MethodDifficulty describes the difficulty posture of a method.
type MethodDifficulty string

const (
	MethodDifficultyIntroductory MethodDifficulty = "INTRODUCTORY"
	MethodDifficultyStandard     MethodDifficulty = "STANDARD"
	MethodDifficultyAdvanced     MethodDifficulty = "ADVANCED"
)

// TeachingMethod is the full method tuple a teaching session runs under.
type TeachingMethod struct {
	Type          MethodType       `json:"type"`
	Approach      Approach         `json:"approach"`
	Pacing        Pacing           `json:"pacing"`
	Reinforcement Reinforcement    `json:"reinforcement"`
	Difficulty    MethodDifficulty `json:"difficulty"`
	Modality      Modality         `json:"modality"`
}

// ─── Learning style ─────────────────────────────────────────────────

// LearningStyle is the 7-dimension weighted preference vector derived from
// the learner model. Each weight is clamped to [0,1]; the dimensions are
// independent, not a distribution.
type LearningStyle struct {
	Visual      float64 `json:"visual"`
	Auditory    float64 `json:"auditory"`
	Kinesthetic float64 `json:"kinesthetic"`
	Reading     float64 `json:"reading"`
	Analytical  float64 `json:"analytical"`
	Social      float64 `json:"social"`
	Solitary    float64 `json:"solitary"`
}

// ─── Performance metrics ────────────────────────────────────────────

// EmotionalState is the coarse affect signal reported by the client.
type EmotionalState string

const (
	EmotionalStateNeutral    EmotionalState = "NEUTRAL"
	EmotionalStateEngaged    EmotionalState = "ENGAGED"
	EmotionalStateFrustrated EmotionalState = "FRUSTRATED"
	EmotionalStateBored      EmotionalState = "BORED"
	EmotionalStateConfident  EmotionalState = "CONFIDENT"
)

// PerformanceMetrics is the live signal set for a teaching session.
type PerformanceMetrics struct {
	Engagement       float64        `json:"engagement"`
	Comprehension    float64        `json:"comprehension"`
	Confusion        float64        `json:"confusion"`
	TimeSpentSec     int            `json:"time_spent_sec"`
	InteractionCount int            `json:"interaction_count"`
	AssessmentScore  float64        `json:"assessment_score"`
	LearningVelocity float64        `json:"learning_velocity"`
	RetentionRate    float64        `json:"retention_rate"`
	EmotionalState   EmotionalState `json:"emotional_state"`
}

// MetricsUpdate carries a partial metrics update; nil fields are left as-is.
type MetricsUpdate struct {
	Engagement       *float64        `json:"engagement" binding:"omitempty,min=0,max=1"`
	Comprehension    *float64        `json:"comprehension" binding:"omitempty,min=0,max=1"`
	Confusion        *float64        `json:"confusion" binding:"omitempty,min=0,max=1"`
	TimeSpentSec     *int            `json:"time_spent_sec" binding:"omitempty,min=0"`
	InteractionCount *int            `json:"interaction_count" binding:"omitempty,min=0"`
	AssessmentScore  *float64        `json:"assessment_score" binding:"omitempty,min=0,max=1"`
	LearningVelocity *float64        `json:"learning_velocity" binding:"omitempty,min=0"`
	RetentionRate    *float64        `json:"retention_rate" binding:"omitempty,min=0,max=1"`
	EmotionalState   *EmotionalState `json:"emotional_state" binding:"omitempty,oneof=NEUTRAL ENGAGED FRUSTRATED BORED CONFIDENT"`
}

// ─── Triggers and adaptations ───────────────────────────────────────

// TriggerType names the threshold condition that caused a method change.
type TriggerType string

const (
	TriggerConfusion     TriggerType = "CONFUSION"
	TriggerEngagement    TriggerType = "ENGAGEMENT"
	TriggerComprehension TriggerType = "COMPREHENSION"
	TriggerMastery       TriggerType = "MASTERY"
)

// TriggerUrgency ranks how quickly a trigger should be acted on.
type TriggerUrgency string

const (
	TriggerUrgencyCritical TriggerUrgency = "CRITICAL"
	TriggerUrgencyHigh     TriggerUrgency = "HIGH"
	TriggerUrgencyLow      TriggerUrgency = "LOW"
)

// TriggerDirection marks whether the observed value breached the threshold
// from above or below.
type TriggerDirection string

const (
	TriggerDirectionAbove TriggerDirection = "ABOVE"
	TriggerDirectionBelow TriggerDirection = "BELOW"
)

// Trigger is a breached threshold condition on a performance metric.
type Trigger struct {
	Type      TriggerType      `json:"type"`
	Threshold float64          `json:"threshold"`
	Observed  float64          `json:"observed"`
	Direction TriggerDirection `json:"direction"`
	Urgency   TriggerUrgency   `json:"urgency"`
}

// Adaptation is an immutable record of one teaching-method switch. The
// learner id travels with the record so the durable trail stays scoped to
// its owner after the live session is gone.
type Adaptation struct {
	ID               uuid.UUID      `json:"id"`
	SessionID        string         `json:"session_id"`
	LearnerID        uuid.UUID      `json:"learner_id"`
	Trigger          Trigger        `json:"trigger"`
	PreviousMethod   TeachingMethod `json:"previous_method"`
	NewMethod        TeachingMethod `json:"new_method"`
	Rationale        string         `json:"rationale"`
	Confidence       float64        `json:"confidence"`
	Success          *bool          `json:"success,omitempty"`
	PerformanceDelta *float64       `json:"performance_delta,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ─── Session ────────────────────────────────────────────────────────

// TeachingSession is one live adaptive-teaching instance, keyed by
// learner+lesson+runtime session id. Mutated only by the teaching service.
type TeachingSession struct {
	ID             string             `json:"id"`
	LearnerID      uuid.UUID          `json:"learner_id"`
	LessonID       uuid.UUID          `json:"lesson_id"`
	Method         TeachingMethod     `json:"method"`
	Style          LearningStyle      `json:"style"`
	Metrics        PerformanceMetrics `json:"metrics"`
	History        []Adaptation       `json:"history"`
	PendingTrigger *Trigger           `json:"pending_trigger,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// InitializeTeachingRequest is the payload for starting a teaching session.
type InitializeTeachingRequest struct {
	LessonID         uuid.UUID `json:"lesson_id" binding:"required"`
	RuntimeSessionID string    `json:"runtime_session_id" binding:"required,min=8,max=128"`
}

// AdaptiveContent describes a method change (or personalized content) for
// the caller to apply to in-flight material.
type AdaptiveContent struct {
	Method          TeachingMethod `json:"method"`
	Content         string         `json:"content,omitempty"`
	ContentType     string         `json:"content_type,omitempty"`
	Rationale       string         `json:"rationale"`
	ExpectedOutcome string         `json:"expected_outcome"`
	SuccessMetrics  []string       `json:"success_metrics"`
	Confidence      float64        `json:"confidence"`
}

// GenerateContentRequest is the payload for content personalization.
type GenerateContentRequest struct {
	Content     string `json:"content" binding:"required,min=1"`
	ContentType string `json:"content_type" binding:"required,oneof=explanation example exercise summary"`
}
