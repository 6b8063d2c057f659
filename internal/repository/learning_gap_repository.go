package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// LearningGapRepository handles learning gap data access.
type LearningGapRepository struct {
	pool *pgxpool.Pool
}

// NewLearningGapRepository creates a new LearningGapRepository.
func NewLearningGapRepository(pool *pgxpool.Pool) *LearningGapRepository {
	return &LearningGapRepository{pool: pool}
}

// Create inserts a gap discovered at assessment completion.
func (r *LearningGapRepository) Create(ctx context.Context, gap *model.LearningGap) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO learning_gaps
		   (session_id, learner_id, subject_id, gap_type, severity, recommended_actions)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		gap.SessionID, gap.LearnerID, gap.SubjectID, gap.GapType, gap.Severity, gap.RecommendedActions,
	).Scan(&gap.ID, &gap.CreatedAt)
}

// ListByLearner retrieves a learner's gaps, newest first.
func (r *LearningGapRepository) ListByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.LearningGap, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, learner_id, subject_id, gap_type, severity, recommended_actions, created_at
		 FROM learning_gaps
		 WHERE learner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gaps []model.LearningGap
	for rows.Next() {
		var gap model.LearningGap
		if err := rows.Scan(&gap.ID, &gap.SessionID, &gap.LearnerID, &gap.SubjectID,
			&gap.GapType, &gap.Severity, &gap.RecommendedActions, &gap.CreatedAt); err != nil {
			return nil, err
		}
		gaps = append(gaps, gap)
	}
	return gaps, rows.Err()
}
