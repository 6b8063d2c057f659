package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseRow(correct bool, timeSpentSec int) model.Response {
	return model.Response{
		ID:           uuid.New(),
		QuestionID:   uuid.New(),
		IsCorrect:    correct,
		TimeSpentSec: timeSpentSec,
	}
}

func TestClampBounds(t *testing.T) {
	assert.Equal(t, 0.1, clamp(0.05, 0.1, 1.0))
	assert.Equal(t, 1.0, clamp(1.3, 0.1, 1.0))
	assert.Equal(t, 0.5, clamp(0.5, 0.1, 1.0))
}

func TestTrailingAccuracyUsesOnlyTheWindow(t *testing.T) {
	// 5 wrong followed by 5 right: whole-history accuracy is 0.5, but the
	// trailing window only sees the streak.
	var responses []model.Response
	for i := 0; i < 5; i++ {
		responses = append(responses, responseRow(false, 30))
	}
	for i := 0; i < 5; i++ {
		responses = append(responses, responseRow(true, 30))
	}

	assert.Equal(t, 1.0, trailingAccuracy(responses, 5))
	assert.Equal(t, 0.5, trailingAccuracy(responses, 10))
}

func TestTrailingAccuracyShortHistory(t *testing.T) {
	responses := []model.Response{responseRow(true, 30), responseRow(false, 30)}
	assert.Equal(t, 0.5, trailingAccuracy(responses, 5))
	assert.Equal(t, 0.0, trailingAccuracy(nil, 5))
	assert.Equal(t, 0.0, trailingAccuracy(responses, 0))
}

func TestErrorPatternsGroupByQuestionType(t *testing.T) {
	mc := model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeMultipleChoice}
	sa := model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeShortAnswer}
	questions := []model.Question{mc, sa}

	responses := []model.Response{
		{QuestionID: mc.ID, IsCorrect: false},
		{QuestionID: mc.ID, IsCorrect: false},
		{QuestionID: mc.ID, IsCorrect: true},
		{QuestionID: sa.ID, IsCorrect: false},
		{QuestionID: uuid.New(), IsCorrect: false}, // unknown question is skipped
	}

	patterns := errorPatterns(questions, responses)
	assert.Equal(t, 2, patterns[string(model.QuestionTypeMultipleChoice)])
	assert.Equal(t, 1, patterns[string(model.QuestionTypeShortAnswer)])
	assert.Len(t, patterns, 2)
}

func TestComputeSnapshotDerivations(t *testing.T) {
	session := &model.AssessmentSession{
		ID:                uuid.New(),
		CurrentDifficulty: 0.7,
		Confidence:        0.6,
	}
	// 3 correct out of 4, 30s each: accuracy 0.75, avg 0.5 minutes.
	responses := []model.Response{
		responseRow(true, 30),
		responseRow(true, 30),
		responseRow(true, 30),
		responseRow(false, 30),
	}

	snap := computeSnapshot(session, nil, responses)
	require.NotNil(t, snap)

	assert.Equal(t, session.ID, snap.SessionID)
	assert.InDelta(t, 2.0, snap.TimeEfficiency, 1e-9)
	assert.InDelta(t, 1.5, snap.LearningVelocity, 1e-9) // 0.75 * 2.0
	assert.InDelta(t, 0.75, snap.RetentionRate, 1e-9)
	assert.InDelta(t, 0.4, snap.EngagementScore, 1e-9) // 4 responses / 10
	assert.InDelta(t, 0.6, snap.ConfidenceLevel, 1e-9)
	assert.InDelta(t, 0.2, snap.DifficultyDeviation, 1e-9) // 0.7 - 0.5
	assert.InDelta(t, 0.525, snap.MasteryProgression, 1e-9)
}

func TestComputeSnapshotNeutralEfficiencyOnZeroTime(t *testing.T) {
	session := &model.AssessmentSession{ID: uuid.New(), CurrentDifficulty: 0.5, Confidence: 0.5}

	// No responses at all.
	snap := computeSnapshot(session, nil, nil)
	assert.Equal(t, 1.0, snap.TimeEfficiency)
	assert.Zero(t, snap.LearningVelocity)
	assert.Zero(t, snap.EngagementScore)

	// Instant answers still avoid a division blowup.
	snap = computeSnapshot(session, nil, []model.Response{responseRow(true, 0)})
	assert.Equal(t, 1.0, snap.TimeEfficiency)
	assert.Equal(t, 1.0, snap.LearningVelocity)
}

func TestComputeSnapshotEngagementSaturates(t *testing.T) {
	session := &model.AssessmentSession{ID: uuid.New(), CurrentDifficulty: 0.5, Confidence: 0.5}
	var responses []model.Response
	for i := 0; i < 14; i++ {
		responses = append(responses, responseRow(true, 60))
	}

	snap := computeSnapshot(session, nil, responses)
	assert.Equal(t, 1.0, snap.EngagementScore)
}
