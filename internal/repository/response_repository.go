package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// ResponseRepository handles learner response data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Create inserts a graded response. Responses are immutable after insert.
func (r *ResponseRepository) Create(ctx context.Context, resp *model.Response) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO responses
		   (session_id, question_id, answer, is_correct, confidence, time_spent_sec, attempts, hints_used, feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		resp.SessionID, resp.QuestionID, resp.Answer, resp.IsCorrect, resp.Confidence,
		resp.TimeSpentSec, resp.Attempts, resp.HintsUsed, resp.Feedback,
	).Scan(&resp.ID, &resp.CreatedAt)
}

// ListBySession retrieves all responses of a session in submission order.
func (r *ResponseRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, answer, is_correct, confidence, time_spent_sec,
		        attempts, hints_used, feedback, created_at
		 FROM responses
		 WHERE session_id = $1
		 ORDER BY created_at ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.ID, &resp.SessionID, &resp.QuestionID, &resp.Answer, &resp.IsCorrect,
			&resp.Confidence, &resp.TimeSpentSec, &resp.Attempts, &resp.HintsUsed, &resp.Feedback, &resp.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
