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
	"github.com/lumenlearn/lumen-backend/internal/llm"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/rs/zerolog"
)

// Assessment flow errors, mapped to response codes by the handlers.
var (
	ErrSessionNotFound      = errors.New("assessment session not found")
	ErrSessionCompleted     = errors.New("assessment session already completed")
	ErrQuestionNotInSession = errors.New("question does not belong to session")
	ErrSessionBusy          = errors.New("assessment session is being written elsewhere")
)

// ─── Consumer interfaces ────────────────────────────────────────────

type assessmentStore interface {
	Create(ctx context.Context, s *model.AssessmentSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error)
	UpdateProgress(ctx context.Context, s *model.AssessmentSession) error
	Complete(ctx context.Context, id uuid.UUID) (time.Time, error)
}

type questionStore interface {
	Create(ctx context.Context, q *model.Question) error
	GetBySession(ctx context.Context, sessionID, questionID uuid.UUID) (*model.Question, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Question, error)
}

type responseStore interface {
	Create(ctx context.Context, resp *model.Response) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Response, error)
}

type analyticsStore interface {
	Create(ctx context.Context, snap *model.AnalyticsSnapshot) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AnalyticsSnapshot, error)
}

type gapStore interface {
	Create(ctx context.Context, gap *model.LearningGap) error
	ListByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.LearningGap, error)
}

// collaborator is the LLM surface the assessment loop depends on. Satisfied
// by *llm.Engine; faked in tests.
type collaborator interface {
	SuggestQuestionParams(ctx context.Context, pc llm.ParamsContext) (model.QuestionParams, error)
	GenerateQuestion(ctx context.Context, params model.QuestionParams, subject string) (model.QuestionContent, error)
	GradeResponse(ctx context.Context, in llm.GradeInput) (llm.GradeResult, error)
}

// profileProvider is the learner-model read path the loop seeds from.
type profileProvider interface {
	GetProfile(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error)
	Refresh(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error)
}

// sessionQueue is the redis surface the loop writes through: queue hand-off
// for snapshots, plus a short-lived lock fencing session writers on other
// instances. The in-process keyLock only covers this instance.
type sessionQueue interface {
	Push(ctx context.Context, queue string, v any) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// ─── Service ────────────────────────────────────────────────────────

// AssessmentService runs the adaptive assessment loop: question generation,
// grading, difficulty adjustment, and completion.
type AssessmentService struct {
	sessions  assessmentStore
	questions questionStore
	responses responseStore
	analytics analyticsStore
	gaps      gapStore
	engine    collaborator
	profiles  profileProvider
	queue     sessionQueue
	adapt     config.AdaptConfig
	locks     *keyLock
	log       zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService. queue may be nil, in
// which case snapshots are persisted synchronously.
func NewAssessmentService(
	sessions assessmentStore,
	questions questionStore,
	responses responseStore,
	analytics analyticsStore,
	gaps gapStore,
	engine collaborator,
	profiles profileProvider,
	queue sessionQueue,
	adapt config.AdaptConfig,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		sessions:  sessions,
		questions: questions,
		responses: responses,
		analytics: analytics,
		gaps:      gaps,
		engine:    engine,
		profiles:  profiles,
		queue:     queue,
		adapt:     adapt,
		locks:     newKeyLock(),
		log:       log.With().Str("component", "assessment_service").Logger(),
	}
}

// CreateSession starts an assessment at baseline difficulty.
func (s *AssessmentService) CreateSession(ctx context.Context, learnerID uuid.UUID, req *model.CreateAssessmentRequest) (*model.AssessmentSession, error) {
	session := &model.AssessmentSession{
		LearnerID:         learnerID,
		SubjectID:         req.SubjectID,
		SessionType:       model.SessionType(req.SessionType),
		CurrentDifficulty: baselineDifficulty,
		Confidence:        0.5,
		Active:            true,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("learner_id", learnerID.String()).
		Str("session_type", string(session.SessionType)).
		Msg("Assessment session started")
	return session, nil
}

// GetSession loads a learner's own session. Unknown ids and other learners'
// sessions both come back as not found.
func (s *AssessmentService) GetSession(ctx context.Context, learnerID, sessionID uuid.UUID) (*model.AssessmentSession, error) {
	return s.loadOwned(ctx, learnerID, sessionID)
}

// ListQuestions returns a session's questions in ask order.
func (s *AssessmentService) ListQuestions(ctx context.Context, learnerID, sessionID uuid.UUID) ([]model.Question, error) {
	if _, err := s.loadOwned(ctx, learnerID, sessionID); err != nil {
		return nil, err
	}
	return s.questions.ListBySession(ctx, sessionID)
}

// ListGaps returns a learner's recorded learning gaps, newest first.
func (s *AssessmentService) ListGaps(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.LearningGap, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.gaps.ListByLearner(ctx, learnerID, limit)
}

// ListAnalytics returns a session's snapshot time series.
func (s *AssessmentService) ListAnalytics(ctx context.Context, learnerID, sessionID uuid.UUID) ([]model.AnalyticsSnapshot, error) {
	if _, err := s.loadOwned(ctx, learnerID, sessionID); err != nil {
		return nil, err
	}
	return s.analytics.ListBySession(ctx, sessionID)
}

// ─── Question generation ────────────────────────────────────────────

// NextQuestion generates the next question at the session's current
// difficulty. Collaborator failures at either stage degrade to deterministic
// defaults; they never fail the request.
func (s *AssessmentService) NextQuestion(ctx context.Context, learnerID, sessionID uuid.UUID) (*model.Question, error) {
	session, err := s.loadOwned(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, ErrSessionCompleted
	}

	history, err := s.responses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	pc := llm.ParamsContext{
		SessionType:       session.SessionType,
		Subject:           session.SubjectID.String(),
		CurrentDifficulty: session.CurrentDifficulty,
		Accuracy:          session.Accuracy(),
		TotalQuestions:    session.TotalQuestions,
		AvgTimeSeconds:    avgTimeSpentMinutes(history) * 60,
	}
	if profile, perr := s.profiles.GetProfile(ctx, learnerID); perr == nil {
		pc.DominantStyle, _ = profile.Pathways.Dominant()
		pc.Strengths = profile.Strengths
		pc.Weaknesses = profile.Weaknesses
	}

	params, err := s.engine.SuggestQuestionParams(ctx, pc)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Param suggestion failed, using defaults")
		params = s.fallbackParams(session)
	}
	// The session's difficulty is authoritative; the collaborator only
	// shapes type and cognitive level.
	params.Difficulty = clamp(session.CurrentDifficulty, 0.1, 1.0)

	content, err := s.engine.GenerateQuestion(ctx, params, session.SubjectID.String())
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Question generation failed, using placeholder")
		content = fallbackQuestionContent(params)
	}

	payload, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal question content: %w", err)
	}

	question := &model.Question{
		SessionID:        sessionID,
		QuestionType:     params.QuestionType,
		Difficulty:       params.Difficulty,
		CognitiveLevel:   params.CognitiveLevel,
		EstimatedSeconds: params.EstimatedSeconds,
		Content:          payload,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("store question: %w", err)
	}
	return question, nil
}

// fallbackParams is the deterministic default when the collaborator cannot
// suggest parameters.
func (s *AssessmentService) fallbackParams(session *model.AssessmentSession) model.QuestionParams {
	return model.QuestionParams{
		QuestionType:     model.QuestionTypeMultipleChoice,
		Difficulty:       clamp(session.CurrentDifficulty, 0.1, 1.0),
		CognitiveLevel:   model.CognitiveLevelUnderstand,
		EstimatedSeconds: 60,
	}
}

// fallbackQuestionContent is the placeholder served when content generation
// fails. It keeps the loop moving; the next question retries the collaborator.
func fallbackQuestionContent(params model.QuestionParams) model.QuestionContent {
	return model.QuestionContent{
		QuestionText:  "Review the current topic and pick the statement that best summarizes it.",
		Options:       []string{"Option A", "Option B", "Option C", "Option D"},
		CorrectAnswer: "Option A",
		Explanation:   "Placeholder question served while generation is unavailable.",
		Objective:     params.Objective,
	}
}

// ─── Response submission ────────────────────────────────────────────

// SubmitResult is the full outcome of grading one response.
type SubmitResult struct {
	Response   *model.Response          `json:"response"`
	Session    *model.AssessmentSession `json:"session"`
	NextAction model.NextAction         `json:"next_action"`
	Snapshot   *model.AnalyticsSnapshot `json:"snapshot"`
}

// SubmitResponse grades an answer, adjusts difficulty and confidence, and
// decides the next action. Submissions to the same session are serialized.
func (s *AssessmentService) SubmitResponse(ctx context.Context, learnerID, sessionID uuid.UUID, req *model.SubmitResponseRequest) (*SubmitResult, error) {
	s.locks.Lock(sessionID.String())
	defer s.locks.Unlock(sessionID.String())

	release, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.loadOwned(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, ErrSessionCompleted
	}

	question, err := s.questions.GetBySession(ctx, sessionID, req.QuestionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotInSession
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	isCorrect, feedback := s.grade(ctx, question, req.Answer)

	response := &model.Response{
		SessionID:    sessionID,
		QuestionID:   question.ID,
		Answer:       req.Answer,
		IsCorrect:    isCorrect,
		Confidence:   req.Confidence,
		TimeSpentSec: req.TimeSpentSec,
		Attempts:     req.Attempts,
		HintsUsed:    req.HintsUsed,
		Feedback:     feedback,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}

	// Counters first, then the difficulty rule reads the fresh accuracy.
	session.TotalQuestions++
	if isCorrect {
		session.CorrectAnswers++
	}
	accuracy := session.Accuracy()

	switch {
	case isCorrect && accuracy > s.adapt.RaiseAccuracy:
		session.CurrentDifficulty = clamp(session.CurrentDifficulty+s.adapt.DifficultyStep, 0.1, 1.0)
	case !isCorrect && accuracy < s.adapt.LowerAccuracy:
		session.CurrentDifficulty = clamp(session.CurrentDifficulty-s.adapt.DifficultyStep, 0.1, 1.0)
	}

	history, err := s.responses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	session.Confidence = clamp(trailingAccuracy(history, s.adapt.ConfidenceWindow), 0.1, 1.0)

	action := s.decideNextAction(session)
	if action == model.NextActionRemediation {
		session.RemediationNeeded = true
	}

	if err := s.sessions.UpdateProgress(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	questions, err := s.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	snapshot := computeSnapshot(session, questions, history)
	s.persistSnapshot(ctx, snapshot)

	return &SubmitResult{
		Response:   response,
		Session:    session,
		NextAction: action,
		Snapshot:   snapshot,
	}, nil
}

// decideNextAction applies the termination rules in priority order.
func (s *AssessmentService) decideNextAction(session *model.AssessmentSession) model.NextAction {
	accuracy := session.Accuracy()
	switch {
	case session.TotalQuestions >= s.adapt.MinQuestions && accuracy >= s.adapt.CompleteAccuracy:
		return model.NextActionComplete
	case session.TotalQuestions >= s.adapt.MaxQuestions:
		return model.NextActionComplete
	case accuracy < s.adapt.RemediationAccuracy && session.TotalQuestions >= s.adapt.RemediationMinAsked:
		return model.NextActionRemediation
	default:
		return model.NextActionContinue
	}
}

// grade scores an answer through the collaborator. Every question type goes
// there, multiple choice included, so an outage has one observable shape: the
// response records as not-correct with supportive feedback.
func (s *AssessmentService) grade(ctx context.Context, question *model.Question, answer json.RawMessage) (bool, string) {
	var content model.QuestionContent
	if err := json.Unmarshal(question.Content, &content); err != nil {
		s.log.Error().Err(err).Str("question_id", question.ID.String()).Msg("Stored question content unreadable")
	}

	given := answerText(answer)

	result, err := s.engine.GradeResponse(ctx, llm.GradeInput{
		QuestionText:  content.QuestionText,
		CorrectAnswer: content.CorrectAnswer,
		QuestionType:  question.QuestionType,
		Answer:        given,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("question_id", question.ID.String()).Msg("Grading failed, recording as incorrect")
		return false, "We could not grade this answer automatically. It will not count against you on review; keep going."
	}
	return result.IsCorrect, result.Feedback
}

// answerText unwraps a JSON string answer, falling back to the raw payload.
func answerText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ─── Completion ─────────────────────────────────────────────────────

// CompletionSummary is the final report for a finished assessment.
type CompletionSummary struct {
	Session         *model.AssessmentSession `json:"session"`
	Snapshot        *model.AnalyticsSnapshot `json:"snapshot"`
	Gaps            []model.LearningGap      `json:"gaps"`
	Recommendations []model.Recommendation   `json:"recommendations"`
}

// CompleteSession finalizes a session: marks it inactive, takes a closing
// snapshot, derives learning gaps and study recommendations, and refreshes
// the learner model.
func (s *AssessmentService) CompleteSession(ctx context.Context, learnerID, sessionID uuid.UUID) (*CompletionSummary, error) {
	s.locks.Lock(sessionID.String())
	defer s.locks.Unlock(sessionID.String())

	release, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.loadOwned(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, ErrSessionCompleted
	}

	completedAt, err := s.sessions.Complete(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	session.Active = false
	session.CompletedAt = &completedAt

	questions, err := s.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	history, err := s.responses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	snapshot := computeSnapshot(session, questions, history)
	if err := s.analytics.Create(ctx, snapshot); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Closing snapshot write failed")
	}

	gaps := s.detectGaps(ctx, session, snapshot)
	recommendations := buildRecommendations(snapshot)

	if _, err := s.profiles.Refresh(ctx, learnerID); err != nil {
		s.log.Warn().Err(err).Str("learner_id", learnerID.String()).Msg("Profile refresh failed after completion")
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("questions", session.TotalQuestions).
		Float64("accuracy", session.Accuracy()).
		Int("gaps", len(gaps)).
		Msg("Assessment session completed")

	return &CompletionSummary{
		Session:         session,
		Snapshot:        snapshot,
		Gaps:            gaps,
		Recommendations: recommendations,
	}, nil
}

// detectGaps creates gap records for weak retention and time efficiency.
func (s *AssessmentService) detectGaps(ctx context.Context, session *model.AssessmentSession, snap *model.AnalyticsSnapshot) []model.LearningGap {
	var gaps []model.LearningGap

	if snap.RetentionRate < 0.6 {
		severity := model.GapSeverityMedium
		if snap.RetentionRate < 0.4 {
			severity = model.GapSeverityHigh
		}
		gaps = append(gaps, model.LearningGap{
			SessionID: session.ID,
			LearnerID: session.LearnerID,
			SubjectID: session.SubjectID,
			GapType:   model.GapTypeConceptualUnderstanding,
			Severity:  severity,
			RecommendedActions: []string{
				"Revisit foundational material for this subject",
				"Schedule spaced-repetition review sessions",
			},
		})
	}

	if snap.TimeEfficiency < 0.5 {
		gaps = append(gaps, model.LearningGap{
			SessionID: session.ID,
			LearnerID: session.LearnerID,
			SubjectID: session.SubjectID,
			GapType:   model.GapTypeTimeManagement,
			Severity:  model.GapSeverityMedium,
			RecommendedActions: []string{
				"Practice with timed exercises",
				"Break problems into smaller timed steps",
			},
		})
	}

	for i := range gaps {
		if err := s.gaps.Create(ctx, &gaps[i]); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID.String()).
				Str("gap_type", string(gaps[i].GapType)).Msg("Gap write failed")
		}
	}
	return gaps
}

// buildRecommendations derives study suggestions from the closing snapshot.
func buildRecommendations(snap *model.AnalyticsSnapshot) []model.Recommendation {
	var recs []model.Recommendation
	if snap.LearningVelocity < 0.5 {
		recs = append(recs, model.Recommendation{
			Area:     "study_method",
			Priority: model.RecommendationPriorityHigh,
			Message:  "Progress is slower than expected. Try shorter, more frequent study sessions.",
		})
	}
	if snap.RetentionRate < 0.7 {
		recs = append(recs, model.Recommendation{
			Area:     "review_schedule",
			Priority: model.RecommendationPriorityMedium,
			Message:  "Retention is below target. Add a review pass within 24 hours of each session.",
		})
	}
	if snap.ConfidenceLevel < 0.6 {
		recs = append(recs, model.Recommendation{
			Area:     "confidence_building",
			Priority: model.RecommendationPriorityMedium,
			Message:  "Recent answers trend uncertain. Mix in easier questions to rebuild momentum.",
		})
	}
	return recs
}

// ─── Helpers ────────────────────────────────────────────────────────

// sessionLockTTL bounds how long a crashed instance can hold a session. It
// must outlast a slow collaborator grading call, which happens inside the
// fenced section.
const sessionLockTTL = 45 * time.Second

// lockSession fences session writers on other instances sharing the
// database. A redis error degrades to the in-process lock alone rather than
// blocking submissions.
func (s *AssessmentService) lockSession(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	if s.queue == nil {
		return func() {}, nil
	}

	key := config.CacheKey.AssessmentLockKey(sessionID.String())
	ok, err := s.queue.AcquireLock(ctx, key, sessionLockTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Session lock unavailable, relying on local lock")
		return func() {}, nil
	}
	if !ok {
		return nil, ErrSessionBusy
	}

	return func() {
		if err := s.queue.ReleaseLock(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Session lock release failed")
		}
	}, nil
}

// loadOwned fetches a session and enforces learner ownership. Foreign
// sessions look identical to missing ones.
func (s *AssessmentService) loadOwned(ctx context.Context, learnerID, sessionID uuid.UUID) (*model.AssessmentSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.LearnerID != learnerID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// persistSnapshot hands the snapshot to the worker queue, writing directly
// when the queue is unavailable.
func (s *AssessmentService) persistSnapshot(ctx context.Context, snap *model.AnalyticsSnapshot) {
	if s.queue != nil {
		err := s.queue.Push(ctx, config.WorkerKey.PersistAnalyticsQueue, snap)
		if err == nil {
			return
		}
		s.log.Warn().Err(err).Msg("Snapshot enqueue failed, writing directly")
	}
	if err := s.analytics.Create(ctx, snap); err != nil {
		s.log.Error().Err(err).Str("session_id", snap.SessionID.String()).Msg("Snapshot write failed")
	}
}
