package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// profileStore is the persistence surface the learner model needs.
type profileStore interface {
	GetByLearner(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error)
	Upsert(ctx context.Context, p *model.LearnerProfile) error
}

// learnerHistory is the analytics read path used to derive a profile.
type learnerHistory interface {
	ListRecentByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.AnalyticsSnapshot, error)
}

// completedSessions reads a learner's finished assessments.
type completedSessions interface {
	ListCompletedByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.AssessmentSession, error)
}

// LearnerModelService is the read path into a learner's historical
// analytics and preferences, used to seed both controllers.
type LearnerModelService struct {
	profiles profileStore
	history  learnerHistory
	sessions completedSessions
	rdb      *redis.Client
	ttl      time.Duration
	log      zerolog.Logger
}

// NewLearnerModelService creates a new LearnerModelService. rdb may be nil,
// which disables the cache layer (tests, degraded mode).
func NewLearnerModelService(
	profiles profileStore,
	history learnerHistory,
	sessions completedSessions,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *LearnerModelService {
	return &LearnerModelService{
		profiles: profiles,
		history:  history,
		sessions: sessions,
		rdb:      rdb,
		ttl:      cfg.ProfileCacheTTL,
		log:      log.With().Str("component", "learner_model").Logger(),
	}
}

// GetProfile returns the learner's model profile: redis cache first, then
// the stored profile, then a fresh derivation from history. Unknown
// learners get a neutral profile so both controllers can always seed.
func (s *LearnerModelService) GetProfile(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error) {
	if cached := s.fromCache(ctx, learnerID); cached != nil {
		return cached, nil
	}

	stored, err := s.profiles.GetByLearner(ctx, learnerID)
	if err == nil {
		s.toCache(ctx, stored)
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	derived, err := s.derive(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Upsert(ctx, derived); err != nil {
		// A failed write does not invalidate the derivation.
		s.log.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("Profile upsert failed")
	}
	s.toCache(ctx, derived)
	return derived, nil
}

// Refresh rebuilds the profile from history, replacing stored and cached
// copies. Called after assessment completion.
func (s *LearnerModelService) Refresh(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error) {
	derived, err := s.derive(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Upsert(ctx, derived); err != nil {
		return nil, fmt.Errorf("store profile: %w", err)
	}
	s.toCache(ctx, derived)
	return derived, nil
}

// ─── Derivation ─────────────────────────────────────────────────────

// derive computes a profile from recent analytics and completed sessions.
// With no history it returns the neutral profile.
func (s *LearnerModelService) derive(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error) {
	snaps, err := s.history.ListRecentByLearner(ctx, learnerID, 50)
	if err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}
	completed, err := s.sessions.ListCompletedByLearner(ctx, learnerID, 20)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	if len(snaps) == 0 && len(completed) == 0 {
		return neutralProfile(learnerID), nil
	}

	var retention, engagement, mastery, velocity float64
	for _, snap := range snaps {
		retention += snap.RetentionRate
		engagement += snap.EngagementScore
		mastery += snap.MasteryProgression
		velocity += snap.LearningVelocity
	}
	if n := float64(len(snaps)); n > 0 {
		retention /= n
		engagement /= n
		mastery /= n
		velocity /= n
	}

	profile := &model.LearnerProfile{
		LearnerID: learnerID,
		Pathways: model.PathwayStrengths{
			Visual:      clamp(0.4+0.4*mastery, 0, 1),
			Auditory:    clamp(0.3+0.3*engagement, 0, 1),
			Kinesthetic: clamp(0.3+0.3*clamp(velocity, 0, 1), 0, 1),
			Reading:     clamp(0.35+0.3*retention, 0, 1),
		},
		Dimensions: model.LearningDimensions{
			Analytical: clamp(0.3+0.5*mastery, 0, 1),
			Social:     clamp(0.2+0.5*engagement, 0, 1),
			Solitary:   clamp(0.8-0.4*engagement, 0, 1),
		},
	}

	profile.Strengths, profile.Weaknesses = subjectSplit(completed)
	profile.Predictions = predictStruggles(snaps)
	return profile, nil
}

// subjectSplit buckets subjects by final accuracy: ≥0.7 strength, <0.5 weakness.
func subjectSplit(completed []model.AssessmentSession) (strengths, weaknesses []string) {
	type agg struct {
		correct, total int
	}
	bySubject := make(map[uuid.UUID]*agg)
	for _, sess := range completed {
		a, ok := bySubject[sess.SubjectID]
		if !ok {
			a = &agg{}
			bySubject[sess.SubjectID] = a
		}
		a.correct += sess.CorrectAnswers
		a.total += sess.TotalQuestions
	}

	for subject, a := range bySubject {
		if a.total == 0 {
			continue
		}
		accuracy := float64(a.correct) / float64(a.total)
		switch {
		case accuracy >= 0.7:
			strengths = append(strengths, subject.String())
		case accuracy < 0.5:
			weaknesses = append(weaknesses, subject.String())
		}
	}
	return strengths, weaknesses
}

// predictStruggles flags areas trending down across the recent snapshots.
// Snapshots arrive newest-first.
func predictStruggles(snaps []model.AnalyticsSnapshot) []model.StrugglePrediction {
	if len(snaps) < 3 {
		return nil
	}

	recent := snaps
	if len(recent) > 10 {
		recent = recent[:10]
	}

	var retention, efficiency float64
	for _, snap := range recent {
		retention += snap.RetentionRate
		efficiency += snap.TimeEfficiency
	}
	n := float64(len(recent))
	retention /= n
	efficiency /= n

	var predictions []model.StrugglePrediction
	if retention < 0.5 {
		predictions = append(predictions, model.StrugglePrediction{
			Area:       "retention",
			Horizon:    model.PredictionHorizonImmediate,
			Confidence: clamp(0.9-retention, 0, 1),
			Rationale:  fmt.Sprintf("average retention %.2f over last %d snapshots", retention, len(recent)),
		})
	}
	if efficiency < 0.5 {
		predictions = append(predictions, model.StrugglePrediction{
			Area:       "pacing",
			Horizon:    model.PredictionHorizonShortTerm,
			Confidence: clamp(0.85-efficiency/2, 0, 1),
			Rationale:  fmt.Sprintf("average time efficiency %.2f over last %d snapshots", efficiency, len(recent)),
		})
	}
	return predictions
}

// neutralProfile seeds an unknown learner with balanced preferences.
func neutralProfile(learnerID uuid.UUID) *model.LearnerProfile {
	return &model.LearnerProfile{
		LearnerID: learnerID,
		Pathways: model.PathwayStrengths{
			Visual:      0.5,
			Auditory:    0.5,
			Kinesthetic: 0.5,
			Reading:     0.5,
		},
		Dimensions: model.LearningDimensions{
			Analytical: 0.5,
			Social:     0.5,
			Solitary:   0.5,
		},
	}
}

// ─── Cache layer ────────────────────────────────────────────────────

func (s *LearnerModelService) fromCache(ctx context.Context, learnerID uuid.UUID) *model.LearnerProfile {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, config.CacheKey.LearnerProfileKey(learnerID.String())).Bytes()
	if err != nil {
		return nil
	}
	var p model.LearnerProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

func (s *LearnerModelService) toCache(ctx context.Context, p *model.LearnerProfile) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.LearnerProfileKey(p.LearnerID.String()), raw, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Profile cache write failed")
	}
}
