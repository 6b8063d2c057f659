package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// AdaptationRepository persists teaching-method adaptation records for
// durable audit. The live history lives on the TeachingSession; this table
// is the async, append-only mirror the workers maintain.
type AdaptationRepository struct {
	pool *pgxpool.Pool
}

// NewAdaptationRepository creates a new AdaptationRepository.
func NewAdaptationRepository(pool *pgxpool.Pool) *AdaptationRepository {
	return &AdaptationRepository{pool: pool}
}

// BulkInsert appends a batch of adaptation records using UNNEST.
func (r *AdaptationRepository) BulkInsert(ctx context.Context, batch []*model.Adaptation) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	sessionIDs := make([]string, 0, n)
	learnerIDs := make([]uuid.UUID, 0, n)
	triggerTypes := make([]string, 0, n)
	payloads := make([][]byte, 0, n)
	createdAts := make([]time.Time, 0, n)

	for _, a := range batch {
		payload, err := json.Marshal(a)
		if err != nil {
			return err
		}
		sessionIDs = append(sessionIDs, a.SessionID)
		learnerIDs = append(learnerIDs, a.LearnerID)
		triggerTypes = append(triggerTypes, string(a.Trigger.Type))
		payloads = append(payloads, payload)
		createdAts = append(createdAts, a.CreatedAt)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO teaching_adaptations (session_id, learner_id, trigger_type, record, created_at)
		 SELECT u.session_id, u.learner_id, u.trigger_type, u.record, u.created_at
		 FROM UNNEST($1::text[], $2::uuid[], $3::text[], $4::jsonb[], $5::timestamptz[])
		   AS u (session_id, learner_id, trigger_type, record, created_at)`,
		sessionIDs, learnerIDs, triggerTypes, payloads, createdAts)
	return err
}

// Insert appends a single record; fallback path when the bulk insert fails.
func (r *AdaptationRepository) Insert(ctx context.Context, a *model.Adaptation) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO teaching_adaptations (session_id, learner_id, trigger_type, record, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.SessionID, a.LearnerID, string(a.Trigger.Type), payload, a.CreatedAt)
	return err
}

// ListBySession retrieves the durable adaptation trail for a session. Rows
// are scoped to the requesting learner; another learner probing the same
// runtime session id sees nothing.
func (r *AdaptationRepository) ListBySession(ctx context.Context, sessionID string, learnerID uuid.UUID) ([]model.Adaptation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT record
		 FROM teaching_adaptations
		 WHERE session_id = $1 AND learner_id = $2
		 ORDER BY created_at ASC`, sessionID, learnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Adaptation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a model.Adaptation
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}
