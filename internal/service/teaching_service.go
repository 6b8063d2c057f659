package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/llm"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/lumenlearn/lumen-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrTeachingNotFound covers unknown teaching sessions and sessions owned by
// another learner.
var ErrTeachingNotFound = errors.New("teaching session not found")

// Adaptation trigger thresholds. Unlike the assessment knobs these are fixed:
// the trigger ladder is ordered by urgency and reordering it via config would
// silently change which condition wins.
const (
	confusionThreshold     = 0.7
	engagementThreshold    = 0.3
	comprehensionThreshold = 0.4
	masteryThreshold       = 0.8
	adaptationConfidence   = 0.8
)

// personalizer is the LLM surface for content reshaping.
type personalizer interface {
	PersonalizeContent(ctx context.Context, in llm.PersonalizeInput) (string, error)
}

// adaptationSink carries adaptations to the persistence worker and the live
// event channel.
type adaptationSink interface {
	Push(ctx context.Context, queue string, v any) error
	Publish(ctx context.Context, channel string, v any) error
}

// adaptationTrail is the durable history read path, satisfied by
// *repository.AdaptationRepository. Lookups are learner-scoped.
type adaptationTrail interface {
	ListBySession(ctx context.Context, sessionID string, learnerID uuid.UUID) ([]model.Adaptation, error)
}

// TeachingService runs the teaching adaptation loop: method selection,
// metric-driven triggers, and content personalization.
type TeachingService struct {
	store    repository.TeachingSessionStore
	engine   personalizer
	profiles profileProvider
	sink     adaptationSink
	trail    adaptationTrail
	locks    *keyLock
	log      zerolog.Logger
}

// NewTeachingService creates a new TeachingService. sink may be nil, which
// keeps adaptations in the live session only; a nil trail serves history
// from the live session instead of the durable table.
func NewTeachingService(
	store repository.TeachingSessionStore,
	engine personalizer,
	profiles profileProvider,
	sink adaptationSink,
	trail adaptationTrail,
	log zerolog.Logger,
) *TeachingService {
	return &TeachingService{
		store:    store,
		engine:   engine,
		profiles: profiles,
		sink:     sink,
		trail:    trail,
		locks:    newKeyLock(),
		log:      log.With().Str("component", "teaching_service").Logger(),
	}
}

// ─── Initialization ─────────────────────────────────────────────────

// Initialize starts a teaching session seeded from the learner model.
// Idempotent per runtime session id: re-initializing returns the live session.
func (s *TeachingService) Initialize(ctx context.Context, learnerID uuid.UUID, req *model.InitializeTeachingRequest) (*model.TeachingSession, error) {
	s.locks.Lock(req.RuntimeSessionID)
	defer s.locks.Unlock(req.RuntimeSessionID)

	existing, err := s.store.Get(ctx, req.RuntimeSessionID)
	if err == nil {
		if existing.LearnerID != learnerID {
			return nil, ErrTeachingNotFound
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrTeachingSessionNotFound) {
		return nil, fmt.Errorf("load teaching session: %w", err)
	}

	profile, err := s.profiles.GetProfile(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load learner profile: %w", err)
	}

	style := styleFromProfile(profile)
	now := time.Now()
	session := &model.TeachingSession{
		ID:        req.RuntimeSessionID,
		LearnerID: learnerID,
		LessonID:  req.LessonID,
		Method:    initialMethod(style),
		Style:     style,
		Metrics: model.PerformanceMetrics{
			Engagement:     0.5,
			Comprehension:  0.5,
			EmotionalState: model.EmotionalStateNeutral,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store teaching session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("learner_id", learnerID.String()).
		Str("method_type", string(session.Method.Type)).
		Msg("Teaching session initialized")
	return session, nil
}

// Get loads a learner's own teaching session.
func (s *TeachingService) Get(ctx context.Context, learnerID uuid.UUID, sessionID string) (*model.TeachingSession, error) {
	return s.loadOwnedTeaching(ctx, learnerID, sessionID)
}

// End removes a teaching session from the live store. The durable adaptation
// trail survives in PostgreSQL.
func (s *TeachingService) End(ctx context.Context, learnerID uuid.UUID, sessionID string) error {
	if _, err := s.loadOwnedTeaching(ctx, learnerID, sessionID); err != nil {
		return err
	}
	return s.store.Remove(ctx, sessionID)
}

// styleFromProfile flattens the learner model into the 7-dimension style
// vector the method selector works on.
func styleFromProfile(p *model.LearnerProfile) model.LearningStyle {
	return model.LearningStyle{
		Visual:      clamp(p.Pathways.Visual, 0, 1),
		Auditory:    clamp(p.Pathways.Auditory, 0, 1),
		Kinesthetic: clamp(p.Pathways.Kinesthetic, 0, 1),
		Reading:     clamp(p.Pathways.Reading, 0, 1),
		Analytical:  clamp(p.Dimensions.Analytical, 0, 1),
		Social:      clamp(p.Dimensions.Social, 0, 1),
		Solitary:    clamp(p.Dimensions.Solitary, 0, 1),
	}
}

// initialMethod picks the template whose dimension the learner weighs
// highest. Ties keep the earlier template, so a flat style lands on visual.
func initialMethod(style model.LearningStyle) model.TeachingMethod {
	type candidate struct {
		weight float64
		method model.MethodType
	}
	candidates := []candidate{
		{style.Visual, model.MethodTypeVisual},
		{style.Auditory, model.MethodTypeAuditory},
		{style.Kinesthetic, model.MethodTypeKinesthetic},
		{style.Analytical, model.MethodTypeAnalytical},
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.weight > best.weight {
			best = c
		}
	}
	return methodTemplate(best.method)
}

// methodTemplate returns the standard method tuple for a method type.
func methodTemplate(t model.MethodType) model.TeachingMethod {
	m := model.TeachingMethod{
		Type:          t,
		Approach:      model.ApproachStructured,
		Pacing:        model.PacingModerate,
		Reinforcement: model.ReinforcementModerate,
		Difficulty:    model.MethodDifficultyStandard,
	}
	switch t {
	case model.MethodTypeVisual:
		m.Modality = model.ModalityVisual
	case model.MethodTypeAuditory:
		m.Approach = model.ApproachDirect
		m.Modality = model.ModalityAuditory
	case model.MethodTypeKinesthetic:
		m.Approach = model.ApproachHandsOn
		m.Modality = model.ModalityInteractive
	case model.MethodTypeAnalytical:
		m.Modality = model.ModalityTextual
	}
	return m
}

// ─── Metric updates and triggers ────────────────────────────────────

// UpdateMetrics merges a partial metric update into the session, evaluates
// the trigger ladder, and adapts the teaching method when a trigger fires.
// Returns the session and the delivery descriptor for the applied change,
// nil when none fired.
func (s *TeachingService) UpdateMetrics(ctx context.Context, learnerID uuid.UUID, sessionID string, update *model.MetricsUpdate) (*model.TeachingSession, *model.AdaptiveContent, error) {
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	session, err := s.loadOwnedTeaching(ctx, learnerID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	mergeMetrics(&session.Metrics, update)
	session.UpdatedAt = time.Now()

	trigger := evaluateTriggers(session.Metrics)
	if trigger == nil {
		session.PendingTrigger = nil
		if err := s.store.Put(ctx, session); err != nil {
			return nil, nil, fmt.Errorf("store teaching session: %w", err)
		}
		return session, nil, nil
	}

	newMethod := s.selectMethod(session, *trigger)
	if newMethod == session.Method {
		// Condition breached but the method already matches; remember the
		// trigger so recommendations can surface it.
		session.PendingTrigger = trigger
		if err := s.store.Put(ctx, session); err != nil {
			return nil, nil, fmt.Errorf("store teaching session: %w", err)
		}
		return session, nil, nil
	}

	adaptation := model.Adaptation{
		ID:             uuid.New(),
		SessionID:      sessionID,
		LearnerID:      learnerID,
		Trigger:        *trigger,
		PreviousMethod: session.Method,
		NewMethod:      newMethod,
		Rationale:      triggerRationale(*trigger),
		Confidence:     adaptationConfidence,
		CreatedAt:      time.Now(),
	}

	session.Method = newMethod
	session.History = append(session.History, adaptation)
	session.PendingTrigger = nil

	if err := s.store.Put(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("store teaching session: %w", err)
	}
	s.emitAdaptation(ctx, &adaptation)

	s.log.Info().
		Str("session_id", sessionID).
		Str("trigger", string(trigger.Type)).
		Str("urgency", string(trigger.Urgency)).
		Str("new_method", string(newMethod.Type)).
		Msg("Teaching method adapted")
	return session, adaptiveContentFor(&adaptation), nil
}

// adaptiveContentFor shapes an applied adaptation into the delivery
// descriptor callers act on.
func adaptiveContentFor(a *model.Adaptation) *model.AdaptiveContent {
	return &model.AdaptiveContent{
		Method:          a.NewMethod,
		Rationale:       a.Rationale,
		ExpectedOutcome: expectedOutcome(a.Trigger.Type),
		SuccessMetrics:  successMetrics(a.Trigger.Type),
		Confidence:      a.Confidence,
	}
}

// expectedOutcome states what the method change is meant to move.
func expectedOutcome(t model.TriggerType) string {
	switch t {
	case model.TriggerConfusion:
		return "reduced confusion through slower, over-explained delivery"
	case model.TriggerEngagement:
		return "recovered engagement through interactive discovery"
	case model.TriggerComprehension:
		return "improved comprehension through preferred-channel delivery"
	case model.TriggerMastery:
		return "sustained challenge through accelerated pacing"
	}
	return ""
}

// successMetrics names the signals that tell whether the change worked.
func successMetrics(t model.TriggerType) []string {
	switch t {
	case model.TriggerConfusion:
		return []string{"confusion", "comprehension"}
	case model.TriggerEngagement:
		return []string{"engagement", "interaction_count"}
	case model.TriggerComprehension:
		return []string{"comprehension", "retention_rate"}
	case model.TriggerMastery:
		return []string{"assessment_score", "learning_velocity"}
	}
	return nil
}

// mergeMetrics applies non-nil fields of the update.
func mergeMetrics(m *model.PerformanceMetrics, u *model.MetricsUpdate) {
	if u.Engagement != nil {
		m.Engagement = *u.Engagement
	}
	if u.Comprehension != nil {
		m.Comprehension = *u.Comprehension
	}
	if u.Confusion != nil {
		m.Confusion = *u.Confusion
	}
	if u.TimeSpentSec != nil {
		m.TimeSpentSec = *u.TimeSpentSec
	}
	if u.InteractionCount != nil {
		m.InteractionCount = *u.InteractionCount
	}
	if u.AssessmentScore != nil {
		m.AssessmentScore = *u.AssessmentScore
	}
	if u.LearningVelocity != nil {
		m.LearningVelocity = *u.LearningVelocity
	}
	if u.RetentionRate != nil {
		m.RetentionRate = *u.RetentionRate
	}
	if u.EmotionalState != nil {
		m.EmotionalState = *u.EmotionalState
	}
}

// evaluateTriggers walks the trigger ladder in urgency order and returns the
// first breached condition, nil when none fire.
func evaluateTriggers(m model.PerformanceMetrics) *model.Trigger {
	switch {
	case m.Confusion > confusionThreshold:
		return &model.Trigger{
			Type:      model.TriggerConfusion,
			Threshold: confusionThreshold,
			Observed:  m.Confusion,
			Direction: model.TriggerDirectionAbove,
			Urgency:   model.TriggerUrgencyCritical,
		}
	case m.Engagement < engagementThreshold:
		return &model.Trigger{
			Type:      model.TriggerEngagement,
			Threshold: engagementThreshold,
			Observed:  m.Engagement,
			Direction: model.TriggerDirectionBelow,
			Urgency:   model.TriggerUrgencyHigh,
		}
	case m.Comprehension < comprehensionThreshold:
		return &model.Trigger{
			Type:      model.TriggerComprehension,
			Threshold: comprehensionThreshold,
			Observed:  m.Comprehension,
			Direction: model.TriggerDirectionBelow,
			Urgency:   model.TriggerUrgencyHigh,
		}
	case m.Comprehension > masteryThreshold && m.AssessmentScore > masteryThreshold:
		return &model.Trigger{
			Type:      model.TriggerMastery,
			Threshold: masteryThreshold,
			Observed:  m.Comprehension,
			Direction: model.TriggerDirectionAbove,
			Urgency:   model.TriggerUrgencyLow,
		}
	default:
		return nil
	}
}

// selectMethod maps a fired trigger to the next method tuple.
func (s *TeachingService) selectMethod(session *model.TeachingSession, trigger model.Trigger) model.TeachingMethod {
	current := session.Method

	switch trigger.Type {
	case model.TriggerConfusion:
		// Slow everything down and over-explain through mixed channels.
		current.Approach = model.ApproachDirect
		current.Pacing = model.PacingSlow
		current.Reinforcement = model.ReinforcementExtensive
		current.Difficulty = model.MethodDifficultyIntroductory
		current.Modality = model.ModalityMixed
	case model.TriggerEngagement:
		current.Approach = model.ApproachDiscovery
		current.Pacing = model.PacingModerate
		current.Reinforcement = model.ReinforcementModerate
		current.Difficulty = model.MethodDifficultyStandard
		current.Modality = model.ModalityInteractive
	case model.TriggerComprehension:
		// Re-align delivery with the learner's strongest dimension.
		realigned := initialMethod(session.Style)
		realigned.Pacing = model.PacingSlow
		realigned.Reinforcement = model.ReinforcementExtensive
		current = realigned
	case model.TriggerMastery:
		current.Pacing = model.PacingFast
		current.Reinforcement = model.ReinforcementMinimal
		current.Difficulty = model.MethodDifficultyAdvanced
	}
	return current
}

// triggerRationale builds the human-readable record for the audit trail.
func triggerRationale(t model.Trigger) string {
	return fmt.Sprintf("%s %s threshold %.2f (observed %.2f)",
		t.Type, map[model.TriggerDirection]string{
			model.TriggerDirectionAbove: "exceeded",
			model.TriggerDirectionBelow: "fell below",
		}[t.Direction], t.Threshold, t.Observed)
}

// emitAdaptation hands the adaptation to the persistence worker and the live
// event channel. Both paths are best-effort; the session history is already
// updated.
func (s *TeachingService) emitAdaptation(ctx context.Context, a *model.Adaptation) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Push(ctx, config.WorkerKey.PersistAdaptationsQueue, a); err != nil {
		s.log.Warn().Err(err).Str("session_id", a.SessionID).Msg("Adaptation enqueue failed")
	}
	if err := s.sink.Publish(ctx, config.CacheKey.TeachingAdaptationChannel(a.SessionID), a); err != nil {
		s.log.Warn().Err(err).Str("session_id", a.SessionID).Msg("Adaptation publish failed")
	}
}

// ─── History ────────────────────────────────────────────────────────

// GetHistory returns the adaptation trail. The durable table serves it when
// wired, so history survives session end; every row carries the learner id,
// which keeps an ended session's trail invisible to anyone but its owner.
func (s *TeachingService) GetHistory(ctx context.Context, learnerID uuid.UUID, sessionID string) ([]model.Adaptation, error) {
	if s.trail == nil {
		session, err := s.loadOwnedTeaching(ctx, learnerID, sessionID)
		if err != nil {
			return nil, err
		}
		return session.History, nil
	}

	history, err := s.trail.ListBySession(ctx, sessionID, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list adaptations: %w", err)
	}
	return history, nil
}

// ─── Content personalization ────────────────────────────────────────

// GenerateAdaptiveContent reshapes lesson material for the current method and
// the learner's strongest pathway. Collaborator failure degrades to the
// original material under the current method.
func (s *TeachingService) GenerateAdaptiveContent(ctx context.Context, learnerID uuid.UUID, sessionID string, req *model.GenerateContentRequest) (*model.AdaptiveContent, error) {
	session, err := s.loadOwnedTeaching(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load learner profile: %w", err)
	}
	dominant, _ := profile.Pathways.Dominant()

	content := req.Content
	confidence := adaptationConfidence
	personalized, err := s.engine.PersonalizeContent(ctx, llm.PersonalizeInput{
		Content:         req.Content,
		ContentType:     req.ContentType,
		DominantPathway: dominant,
		Modality:        session.Method.Modality,
		Analytical:      profile.Dimensions.Analytical,
		Social:          profile.Dimensions.Social,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Personalization failed, serving original material")
		confidence = 0.3
	} else {
		content = personalized
	}

	return &model.AdaptiveContent{
		Method:          session.Method,
		Content:         content,
		ContentType:     req.ContentType,
		Rationale:       fmt.Sprintf("delivered through %s modality for a %s-dominant learner", session.Method.Modality, dominant),
		ExpectedOutcome: "improved comprehension through preferred-channel delivery",
		SuccessMetrics:  []string{"comprehension", "engagement"},
		Confidence:      confidence,
	}, nil
}

// ─── Recommendations ────────────────────────────────────────────────

// AdaptationRecommendation is the read-only advisory view: what the engine
// would do next without mutating the session.
type AdaptationRecommendation struct {
	Trigger         *model.Trigger             `json:"trigger,omitempty"`
	SuggestedMethod *model.TeachingMethod      `json:"suggested_method,omitempty"`
	Rationale       string                     `json:"rationale,omitempty"`
	Predictions     []model.StrugglePrediction `json:"predictions,omitempty"`
}

// GetRecommendations evaluates the trigger ladder against current metrics
// without applying anything, and attaches high-confidence struggle
// predictions from the learner model.
func (s *TeachingService) GetRecommendations(ctx context.Context, learnerID uuid.UUID, sessionID string) (*AdaptationRecommendation, error) {
	session, err := s.loadOwnedTeaching(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}

	rec := &AdaptationRecommendation{}
	if trigger := evaluateTriggers(session.Metrics); trigger != nil {
		suggested := s.selectMethod(session, *trigger)
		rec.Trigger = trigger
		rec.SuggestedMethod = &suggested
		rec.Rationale = triggerRationale(*trigger)
	}

	profile, err := s.profiles.GetProfile(ctx, learnerID)
	if err != nil {
		s.log.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("Profile load failed for recommendations")
		return rec, nil
	}
	for _, p := range profile.Predictions {
		if p.Confidence > 0.7 {
			rec.Predictions = append(rec.Predictions, p)
		}
	}
	return rec, nil
}

// ─── Helpers ────────────────────────────────────────────────────────

func (s *TeachingService) loadOwnedTeaching(ctx context.Context, learnerID uuid.UUID, sessionID string) (*model.TeachingSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrTeachingSessionNotFound) {
		return nil, ErrTeachingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load teaching session: %w", err)
	}
	if session.LearnerID != learnerID {
		return nil, ErrTeachingNotFound
	}
	return session, nil
}
