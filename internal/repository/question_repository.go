package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// QuestionRepository handles generated question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a generated question at the next ordinal position.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions
		   (session_id, question_type, difficulty, cognitive_level, estimated_seconds, order_num, content)
		 VALUES ($1, $2, $3, $4, $5,
		   (SELECT COALESCE(MAX(order_num), 0) + 1 FROM questions WHERE session_id = $1),
		   $6)
		 RETURNING id, order_num, created_at`,
		q.SessionID, q.QuestionType, q.Difficulty, q.CognitiveLevel, q.EstimatedSeconds, q.Content,
	).Scan(&q.ID, &q.OrderNum, &q.CreatedAt)
}

// GetBySession retrieves a question only if it belongs to the given session.
func (r *QuestionRepository) GetBySession(ctx context.Context, sessionID, questionID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, question_type, difficulty, cognitive_level, estimated_seconds, order_num, content, created_at
		 FROM questions
		 WHERE id = $1 AND session_id = $2`, questionID, sessionID,
	).Scan(&q.ID, &q.SessionID, &q.QuestionType, &q.Difficulty, &q.CognitiveLevel,
		&q.EstimatedSeconds, &q.OrderNum, &q.Content, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListBySession retrieves all questions of a session in ask order.
func (r *QuestionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_type, difficulty, cognitive_level, estimated_seconds, order_num, content, created_at
		 FROM questions
		 WHERE session_id = $1
		 ORDER BY order_num ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.QuestionType, &q.Difficulty, &q.CognitiveLevel,
			&q.EstimatedSeconds, &q.OrderNum, &q.Content, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
