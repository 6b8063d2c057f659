package service

import (
	"github.com/google/uuid"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// baselineDifficulty is the seed difficulty every session starts from;
// DifficultyDeviation measures drift away from it.
const baselineDifficulty = 0.5

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// accuracyOf returns correct/total over a response slice, 0 when empty.
func accuracyOf(responses []model.Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	correct := 0
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(responses))
}

// trailingAccuracy returns accuracy over the last min(window, n) responses.
func trailingAccuracy(responses []model.Response, window int) float64 {
	if window <= 0 || len(responses) == 0 {
		return 0
	}
	start := len(responses) - window
	if start < 0 {
		start = 0
	}
	return accuracyOf(responses[start:])
}

// avgTimeSpentMinutes returns the mean response time in minutes.
func avgTimeSpentMinutes(responses []model.Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	total := 0
	for _, r := range responses {
		total += r.TimeSpentSec
	}
	return float64(total) / float64(len(responses)) / 60.0
}

// errorPatterns counts incorrect responses per question type.
func errorPatterns(questions []model.Question, responses []model.Response) map[string]int {
	typeByQuestion := make(map[uuid.UUID]model.QuestionType, len(questions))
	for _, q := range questions {
		typeByQuestion[q.ID] = q.QuestionType
	}

	patterns := make(map[string]int)
	for _, r := range responses {
		if r.IsCorrect {
			continue
		}
		qt, ok := typeByQuestion[r.QuestionID]
		if !ok {
			continue
		}
		patterns[string(qt)]++
	}
	return patterns
}

// computeSnapshot derives a full analytics snapshot from session history.
//
// Derivations: learningVelocity = accuracy × (1/avgMinutes),
// retentionRate = accuracy, engagementScore = min(1, responses/10),
// masteryProgression = accuracy × currentDifficulty,
// timeEfficiency = 1/avgMinutes. A zero average time (instant answers or an
// empty history) yields neutral efficiency 1 rather than a division blowup.
func computeSnapshot(session *model.AssessmentSession, questions []model.Question, responses []model.Response) *model.AnalyticsSnapshot {
	accuracy := accuracyOf(responses)
	avgMinutes := avgTimeSpentMinutes(responses)

	timeEfficiency := 1.0
	if avgMinutes > 0 {
		timeEfficiency = 1.0 / avgMinutes
	}

	engagement := float64(len(responses)) / 10.0
	if engagement > 1 {
		engagement = 1
	}

	return &model.AnalyticsSnapshot{
		SessionID:           session.ID,
		LearningVelocity:    accuracy * timeEfficiency,
		RetentionRate:       accuracy,
		EngagementScore:     engagement,
		ConfidenceLevel:     session.Confidence,
		DifficultyDeviation: session.CurrentDifficulty - baselineDifficulty,
		MasteryProgression:  accuracy * session.CurrentDifficulty,
		TimeEfficiency:      timeEfficiency,
		ErrorPatterns:       errorPatterns(questions, responses),
	}
}
