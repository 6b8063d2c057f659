package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// AssessmentSessionRepository handles assessment session data access.
type AssessmentSessionRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentSessionRepository creates a new AssessmentSessionRepository.
func NewAssessmentSessionRepository(pool *pgxpool.Pool) *AssessmentSessionRepository {
	return &AssessmentSessionRepository{pool: pool}
}

// Create inserts a new assessment session with seeded adaptation state.
func (r *AssessmentSessionRepository) Create(ctx context.Context, s *model.AssessmentSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessment_sessions
		   (learner_id, subject_id, session_type, current_difficulty, confidence, active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, created_at`,
		s.LearnerID, s.SubjectID, s.SessionType, s.CurrentDifficulty, s.Confidence,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetByID retrieves a session by its id.
func (r *AssessmentSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, learner_id, subject_id, session_type, current_difficulty, confidence,
		        total_questions, correct_answers, remediation_needed, active, created_at, completed_at
		 FROM assessment_sessions
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.LearnerID, &s.SubjectID, &s.SessionType, &s.CurrentDifficulty, &s.Confidence,
		&s.TotalQuestions, &s.CorrectAnswers, &s.RemediationNeeded, &s.Active, &s.CreatedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateProgress persists the adaptation counters after a graded response.
func (r *AssessmentSessionRepository) UpdateProgress(ctx context.Context, s *model.AssessmentSession) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET current_difficulty = $1, confidence = $2, total_questions = $3,
		     correct_answers = $4, remediation_needed = $5
		 WHERE id = $6 AND active = TRUE`,
		s.CurrentDifficulty, s.Confidence, s.TotalQuestions, s.CorrectAnswers, s.RemediationNeeded, s.ID)
	return err
}

// Complete marks a session inactive with a completion timestamp. Completed
// sessions never transition back.
func (r *AssessmentSessionRepository) Complete(ctx context.Context, id uuid.UUID) (time.Time, error) {
	var completedAt time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE assessment_sessions
		 SET active = FALSE, completed_at = NOW()
		 WHERE id = $1 AND active = TRUE
		 RETURNING completed_at`, id,
	).Scan(&completedAt)
	return completedAt, err
}

// ListCompletedByLearner retrieves a learner's completed sessions, newest
// first, for learner-model derivation.
func (r *AssessmentSessionRepository) ListCompletedByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.AssessmentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, learner_id, subject_id, session_type, current_difficulty, confidence,
		        total_questions, correct_answers, remediation_needed, active, created_at, completed_at
		 FROM assessment_sessions
		 WHERE learner_id = $1 AND active = FALSE
		 ORDER BY completed_at DESC
		 LIMIT $2`, learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.AssessmentSession
	for rows.Next() {
		var s model.AssessmentSession
		if err := rows.Scan(&s.ID, &s.LearnerID, &s.SubjectID, &s.SessionType, &s.CurrentDifficulty, &s.Confidence,
			&s.TotalQuestions, &s.CorrectAnswers, &s.RemediationNeeded, &s.Active, &s.CreatedAt, &s.CompletedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
