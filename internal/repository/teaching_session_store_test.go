package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTeachingSession(id string) *model.TeachingSession {
	return &model.TeachingSession{
		ID:        id,
		LearnerID: uuid.New(),
		LessonID:  uuid.New(),
		Method: model.TeachingMethod{
			Type:          model.MethodTypeVisual,
			Approach:      model.ApproachStructured,
			Pacing:        model.PacingModerate,
			Reinforcement: model.ReinforcementModerate,
			Difficulty:    model.MethodDifficultyStandard,
			Modality:      model.ModalityVisual,
		},
		Metrics: model.PerformanceMetrics{
			Engagement:     0.5,
			Comprehension:  0.5,
			EmotionalState: model.EmotionalStateNeutral,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryTeachingSessionStore()
	ctx := context.Background()
	session := sampleTeachingSession("session-1")

	require.NoError(t, store.Put(ctx, session))

	loaded, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, session.LearnerID, loaded.LearnerID)
	assert.Equal(t, session.Method, loaded.Method)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryTeachingSessionStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTeachingSessionNotFound)
}

func TestMemoryStoreGetReturnsIsolatedCopy(t *testing.T) {
	store := NewMemoryTeachingSessionStore()
	ctx := context.Background()
	session := sampleTeachingSession("session-iso")
	session.History = []model.Adaptation{{ID: uuid.New(), SessionID: session.ID}}
	session.PendingTrigger = &model.Trigger{Type: model.TriggerConfusion}
	require.NoError(t, store.Put(ctx, session))

	first, err := store.Get(ctx, session.ID)
	require.NoError(t, err)

	// Mutating the loaded copy must not leak into the store.
	first.Metrics.Confusion = 0.99
	first.History = append(first.History, model.Adaptation{ID: uuid.New()})
	first.PendingTrigger.Type = model.TriggerMastery

	second, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Zero(t, second.Metrics.Confusion)
	assert.Len(t, second.History, 1)
	assert.Equal(t, model.TriggerConfusion, second.PendingTrigger.Type)
}

func TestMemoryStorePutStoresSnapshot(t *testing.T) {
	store := NewMemoryTeachingSessionStore()
	ctx := context.Background()
	session := sampleTeachingSession("session-snap")
	require.NoError(t, store.Put(ctx, session))

	// Mutations after Put are invisible until the next Put.
	session.Metrics.Engagement = 0.1

	loaded, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, loaded.Metrics.Engagement)
}

func TestMemoryStoreRemove(t *testing.T) {
	store := NewMemoryTeachingSessionStore()
	ctx := context.Background()
	session := sampleTeachingSession("session-rm")
	require.NoError(t, store.Put(ctx, session))

	require.NoError(t, store.Remove(ctx, session.ID))

	_, err := store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrTeachingSessionNotFound)

	// Removing an already-absent session is not an error.
	assert.NoError(t, store.Remove(ctx, session.ID))
}
