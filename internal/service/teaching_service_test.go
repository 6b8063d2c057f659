package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lumenlearn/lumen-backend/internal/llm"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/lumenlearn/lumen-backend/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersonalizer struct {
	fail   bool
	output string
}

func (f *fakePersonalizer) PersonalizeContent(_ context.Context, _ llm.PersonalizeInput) (string, error) {
	if f.fail {
		return "", errors.New("collaborator unavailable")
	}
	return f.output, nil
}

// styledProfileProvider returns a profile with a configurable dominant pathway.
type styledProfileProvider struct {
	profile *model.LearnerProfile
}

func (f *styledProfileProvider) GetProfile(_ context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error) {
	if f.profile != nil {
		cp := *f.profile
		cp.LearnerID = learnerID
		return &cp, nil
	}
	return neutralProfile(learnerID), nil
}

func (f *styledProfileProvider) Refresh(_ context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error) {
	return f.GetProfile(context.Background(), learnerID)
}

// fakeTrail is an in-memory durable adaptation trail.
type fakeTrail struct {
	records []model.Adaptation
}

func (f *fakeTrail) ListBySession(_ context.Context, sessionID string, learnerID uuid.UUID) ([]model.Adaptation, error) {
	var out []model.Adaptation
	for _, a := range f.records {
		if a.SessionID == sessionID && a.LearnerID == learnerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type teachingFixture struct {
	svc          *TeachingService
	store        *repository.MemoryTeachingSessionStore
	personalizer *fakePersonalizer
	profiles     *styledProfileProvider
	learnerID    uuid.UUID
}

func newTeachingFixture() *teachingFixture {
	f := &teachingFixture{
		store:        repository.NewMemoryTeachingSessionStore(),
		personalizer: &fakePersonalizer{output: "personalized material"},
		profiles:     &styledProfileProvider{},
		learnerID:    uuid.New(),
	}
	f.svc = NewTeachingService(f.store, f.personalizer, f.profiles, nil, nil, zerolog.Nop())
	return f
}

func (f *teachingFixture) initialize(t *testing.T) *model.TeachingSession {
	t.Helper()
	session, err := f.svc.Initialize(context.Background(), f.learnerID, &model.InitializeTeachingRequest{
		LessonID:         uuid.New(),
		RuntimeSessionID: "runtime-" + uuid.New().String(),
	})
	require.NoError(t, err)
	return session
}

func floatPtr(v float64) *float64 { return &v }

// ─── Initialization ─────────────────────────────────────────────────

func TestInitializePicksDominantStyleMethod(t *testing.T) {
	f := newTeachingFixture()
	f.profiles.profile = &model.LearnerProfile{
		Pathways:   model.PathwayStrengths{Visual: 0.3, Auditory: 0.4, Kinesthetic: 0.9, Reading: 0.2},
		Dimensions: model.LearningDimensions{Analytical: 0.5, Social: 0.5, Solitary: 0.5},
	}

	session := f.initialize(t)
	assert.Equal(t, model.MethodTypeKinesthetic, session.Method.Type)
	assert.Equal(t, model.ApproachHandsOn, session.Method.Approach)
	assert.Equal(t, model.ModalityInteractive, session.Method.Modality)
}

func TestInitializeIsIdempotentPerRuntimeSession(t *testing.T) {
	f := newTeachingFixture()
	req := &model.InitializeTeachingRequest{
		LessonID:         uuid.New(),
		RuntimeSessionID: "runtime-repeat",
	}

	first, err := f.svc.Initialize(context.Background(), f.learnerID, req)
	require.NoError(t, err)
	second, err := f.svc.Initialize(context.Background(), f.learnerID, req)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	// Another learner may not claim the same runtime session.
	_, err = f.svc.Initialize(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrTeachingNotFound)
}

func TestInitializeSeedsNeutralMetrics(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	assert.Equal(t, 0.5, session.Metrics.Engagement)
	assert.Equal(t, 0.5, session.Metrics.Comprehension)
	assert.Zero(t, session.Metrics.Confusion)
	assert.Equal(t, model.EmotionalStateNeutral, session.Metrics.EmotionalState)
	assert.Empty(t, session.History)
}

// ─── Trigger ladder ─────────────────────────────────────────────────

func TestConfusionTriggerOutranksEngagement(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	// Both conditions breached at once; confusion must win.
	updated, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion:  floatPtr(0.9),
		Engagement: floatPtr(0.1),
	})
	require.NoError(t, err)
	require.NotNil(t, content)

	require.Len(t, updated.History, 1)
	assert.Equal(t, model.TriggerConfusion, updated.History[0].Trigger.Type)
	assert.Equal(t, model.TriggerUrgencyCritical, updated.History[0].Trigger.Urgency)
	assert.Equal(t, model.PacingSlow, updated.Method.Pacing)
	assert.Equal(t, model.ReinforcementExtensive, updated.Method.Reinforcement)
	assert.Equal(t, model.ModalityMixed, updated.Method.Modality)
	assert.Equal(t, updated.Method, content.Method)
}

func TestEngagementTriggerMovesToDiscovery(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	updated, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Engagement: floatPtr(0.2),
	})
	require.NoError(t, err)
	require.NotNil(t, content)

	require.Len(t, updated.History, 1)
	assert.Equal(t, model.TriggerEngagement, updated.History[0].Trigger.Type)
	assert.Equal(t, model.ApproachDiscovery, content.Method.Approach)
	assert.Equal(t, model.ModalityInteractive, content.Method.Modality)
}

func TestComprehensionTriggerRealignsToDominantStyle(t *testing.T) {
	f := newTeachingFixture()
	f.profiles.profile = &model.LearnerProfile{
		Pathways:   model.PathwayStrengths{Visual: 0.9, Auditory: 0.2, Kinesthetic: 0.2, Reading: 0.2},
		Dimensions: model.LearningDimensions{Analytical: 0.3, Social: 0.5, Solitary: 0.5},
	}
	session := f.initialize(t)

	updated, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Comprehension: floatPtr(0.3),
	})
	require.NoError(t, err)
	require.NotNil(t, content)

	require.Len(t, updated.History, 1)
	assert.Equal(t, model.TriggerComprehension, updated.History[0].Trigger.Type)
	assert.Equal(t, model.MethodTypeVisual, content.Method.Type)
	assert.Equal(t, model.PacingSlow, content.Method.Pacing)
}

func TestMasteryTriggerAccelerates(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	updated, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Comprehension:   floatPtr(0.9),
		AssessmentScore: floatPtr(0.85),
	})
	require.NoError(t, err)
	require.NotNil(t, content)

	require.Len(t, updated.History, 1)
	assert.Equal(t, model.TriggerMastery, updated.History[0].Trigger.Type)
	assert.Equal(t, model.TriggerUrgencyLow, updated.History[0].Trigger.Urgency)
	assert.Equal(t, model.PacingFast, content.Method.Pacing)
	assert.Equal(t, model.MethodDifficultyAdvanced, content.Method.Difficulty)
}

func TestNoTriggerMeansNoAdaptation(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	updated, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Engagement:    floatPtr(0.6),
		Comprehension: floatPtr(0.6),
	})
	require.NoError(t, err)
	assert.Nil(t, content)
	assert.Empty(t, updated.History)
	assert.Equal(t, session.Method, updated.Method)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	_, first, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion: floatPtr(0.9),
	})
	require.NoError(t, err)
	require.NotNil(t, first)

	// Confusion resolved, mastery reached: a second adaptation lands on top.
	updated, second, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion:       floatPtr(0.1),
		Comprehension:   floatPtr(0.95),
		AssessmentScore: floatPtr(0.9),
	})
	require.NoError(t, err)
	require.NotNil(t, second)

	require.Len(t, updated.History, 2)
	assert.Equal(t, model.TriggerConfusion, updated.History[0].Trigger.Type)
	assert.Equal(t, model.TriggerMastery, updated.History[1].Trigger.Type)
	assert.Equal(t, updated.History[0].NewMethod, updated.History[1].PreviousMethod)
	assert.Equal(t, f.learnerID, updated.History[1].LearnerID)
}

func TestRepeatedTriggerWithoutMethodChangeIsPending(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	_, first, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion: floatPtr(0.9),
	})
	require.NoError(t, err)
	require.NotNil(t, first)

	// Still confused: the method already matches the confusion posture, so
	// no new adaptation is recorded.
	updated, second, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion: floatPtr(0.95),
	})
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, updated.History, 1)
	require.NotNil(t, updated.PendingTrigger)
	assert.Equal(t, model.TriggerConfusion, updated.PendingTrigger.Type)
}

func TestAdaptationDescriptorNamesOutcome(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	_, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion: floatPtr(0.9),
	})
	require.NoError(t, err)
	require.NotNil(t, content)

	assert.NotEmpty(t, content.ExpectedOutcome)
	assert.Contains(t, content.SuccessMetrics, "confusion")
	assert.Equal(t, adaptationConfidence, content.Confidence)
}

// ─── History ────────────────────────────────────────────────────────

func TestHistoryServedFromLiveSessionWithoutTrail(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	_, _, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion: floatPtr(0.9),
	})
	require.NoError(t, err)

	history, err := f.svc.GetHistory(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = f.svc.GetHistory(context.Background(), uuid.New(), session.ID)
	assert.ErrorIs(t, err, ErrTeachingNotFound)
}

func TestDurableHistoryIsScopedToItsOwner(t *testing.T) {
	f := newTeachingFixture()
	trail := &fakeTrail{}
	f.svc = NewTeachingService(f.store, f.personalizer, f.profiles, nil, trail, zerolog.Nop())
	session := f.initialize(t)

	_, content, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Confusion: floatPtr(0.9),
	})
	require.NoError(t, err)
	require.NotNil(t, content)

	// Mirror the applied adaptation into the durable trail the way the
	// persistence worker would.
	live, err := f.svc.Get(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)
	trail.records = append(trail.records, live.History...)

	// Ending the session must not open the trail to other learners.
	require.NoError(t, f.svc.End(context.Background(), f.learnerID, session.ID))

	history, err := f.svc.GetHistory(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, f.learnerID, history[0].LearnerID)

	foreign, err := f.svc.GetHistory(context.Background(), uuid.New(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

// ─── Content personalization ────────────────────────────────────────

func TestGenerateContentUsesCollaborator(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	content, err := f.svc.GenerateAdaptiveContent(context.Background(), f.learnerID, session.ID, &model.GenerateContentRequest{
		Content:     "original material",
		ContentType: "explanation",
	})
	require.NoError(t, err)
	assert.Equal(t, "personalized material", content.Content)
	assert.Equal(t, session.Method, content.Method)
}

func TestGenerateContentFallsBackToOriginal(t *testing.T) {
	f := newTeachingFixture()
	f.personalizer.fail = true
	session := f.initialize(t)

	content, err := f.svc.GenerateAdaptiveContent(context.Background(), f.learnerID, session.ID, &model.GenerateContentRequest{
		Content:     "original material",
		ContentType: "explanation",
	})
	require.NoError(t, err)
	assert.Equal(t, "original material", content.Content)
	assert.Less(t, content.Confidence, adaptationConfidence)
}

// ─── Recommendations ────────────────────────────────────────────────

func TestRecommendationsAreReadOnly(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	_, _, err := f.svc.UpdateMetrics(context.Background(), f.learnerID, session.ID, &model.MetricsUpdate{
		Engagement: floatPtr(0.1),
	})
	require.NoError(t, err)

	before, err := f.svc.Get(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)

	rec, err := f.svc.GetRecommendations(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)

	after, err := f.svc.Get(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before.History), len(after.History))
	assert.Equal(t, before.Method, after.Method)
	_ = rec
}

func TestRecommendationsSurfaceHighConfidencePredictions(t *testing.T) {
	f := newTeachingFixture()
	f.profiles.profile = &model.LearnerProfile{
		Pathways:   model.PathwayStrengths{Visual: 0.5, Auditory: 0.5, Kinesthetic: 0.5, Reading: 0.5},
		Dimensions: model.LearningDimensions{Analytical: 0.5, Social: 0.5, Solitary: 0.5},
		Predictions: []model.StrugglePrediction{
			{Area: "retention", Horizon: model.PredictionHorizonImmediate, Confidence: 0.8},
			{Area: "pacing", Horizon: model.PredictionHorizonShortTerm, Confidence: 0.4},
		},
	}
	session := f.initialize(t)

	rec, err := f.svc.GetRecommendations(context.Background(), f.learnerID, session.ID)
	require.NoError(t, err)
	require.Len(t, rec.Predictions, 1)
	assert.Equal(t, "retention", rec.Predictions[0].Area)
}

// ─── Session lifecycle ──────────────────────────────────────────────

func TestEndRemovesLiveSession(t *testing.T) {
	f := newTeachingFixture()
	session := f.initialize(t)

	require.NoError(t, f.svc.End(context.Background(), f.learnerID, session.ID))

	_, err := f.svc.Get(context.Background(), f.learnerID, session.ID)
	assert.ErrorIs(t, err, ErrTeachingNotFound)
}
