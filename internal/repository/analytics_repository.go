package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// AnalyticsRepository handles analytics snapshot data access. Snapshots are
// append-only: there is no update path.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// Create appends one snapshot to a session's time series.
func (r *AnalyticsRepository) Create(ctx context.Context, snap *model.AnalyticsSnapshot) error {
	patterns, err := json.Marshal(snap.ErrorPatterns)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO analytics_snapshots
		   (session_id, learning_velocity, retention_rate, engagement_score, confidence_level,
		    difficulty_deviation, mastery_progression, time_efficiency, error_patterns)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		snap.SessionID, snap.LearningVelocity, snap.RetentionRate, snap.EngagementScore,
		snap.ConfidenceLevel, snap.DifficultyDeviation, snap.MasteryProgression,
		snap.TimeEfficiency, patterns,
	).Scan(&snap.ID, &snap.CreatedAt)
}

// BulkInsert appends a batch of snapshots using UNNEST. Used by the
// persistence worker; ids and timestamps are assigned by the database.
func (r *AnalyticsRepository) BulkInsert(ctx context.Context, batch []*model.AnalyticsSnapshot) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	sessionIDs := make([]uuid.UUID, 0, n)
	velocities := make([]float64, 0, n)
	retentions := make([]float64, 0, n)
	engagements := make([]float64, 0, n)
	confidences := make([]float64, 0, n)
	deviations := make([]float64, 0, n)
	masteries := make([]float64, 0, n)
	efficiencies := make([]float64, 0, n)
	patterns := make([][]byte, 0, n)

	for _, snap := range batch {
		p, err := json.Marshal(snap.ErrorPatterns)
		if err != nil {
			return err
		}
		sessionIDs = append(sessionIDs, snap.SessionID)
		velocities = append(velocities, snap.LearningVelocity)
		retentions = append(retentions, snap.RetentionRate)
		engagements = append(engagements, snap.EngagementScore)
		confidences = append(confidences, snap.ConfidenceLevel)
		deviations = append(deviations, snap.DifficultyDeviation)
		masteries = append(masteries, snap.MasteryProgression)
		efficiencies = append(efficiencies, snap.TimeEfficiency)
		patterns = append(patterns, p)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics_snapshots
		   (session_id, learning_velocity, retention_rate, engagement_score, confidence_level,
		    difficulty_deviation, mastery_progression, time_efficiency, error_patterns)
		 SELECT u.session_id, u.learning_velocity, u.retention_rate, u.engagement_score, u.confidence_level,
		        u.difficulty_deviation, u.mastery_progression, u.time_efficiency, u.error_patterns
		 FROM UNNEST($1::uuid[], $2::float8[], $3::float8[], $4::float8[], $5::float8[],
		             $6::float8[], $7::float8[], $8::float8[], $9::jsonb[])
		   AS u (session_id, learning_velocity, retention_rate, engagement_score, confidence_level,
		         difficulty_deviation, mastery_progression, time_efficiency, error_patterns)`,
		sessionIDs, velocities, retentions, engagements, confidences,
		deviations, masteries, efficiencies, patterns)
	return err
}

// ListBySession retrieves a session's snapshot time series, oldest first.
func (r *AnalyticsRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AnalyticsSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, learning_velocity, retention_rate, engagement_score, confidence_level,
		        difficulty_deviation, mastery_progression, time_efficiency, error_patterns, created_at
		 FROM analytics_snapshots
		 WHERE session_id = $1
		 ORDER BY created_at ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// ListRecentByLearner retrieves the newest snapshots across all of a
// learner's sessions, for learner-model derivation.
func (r *AnalyticsRepository) ListRecentByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]model.AnalyticsSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.session_id, a.learning_velocity, a.retention_rate, a.engagement_score, a.confidence_level,
		        a.difficulty_deviation, a.mastery_progression, a.time_efficiency, a.error_patterns, a.created_at
		 FROM analytics_snapshots a
		 JOIN assessment_sessions s ON a.session_id = s.id
		 WHERE s.learner_id = $1
		 ORDER BY a.created_at DESC
		 LIMIT $2`, learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

type snapshotRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSnapshots(rows snapshotRows) ([]model.AnalyticsSnapshot, error) {
	var snaps []model.AnalyticsSnapshot
	for rows.Next() {
		var snap model.AnalyticsSnapshot
		var patterns []byte
		if err := rows.Scan(&snap.ID, &snap.SessionID, &snap.LearningVelocity, &snap.RetentionRate,
			&snap.EngagementScore, &snap.ConfidenceLevel, &snap.DifficultyDeviation,
			&snap.MasteryProgression, &snap.TimeEfficiency, &patterns, &snap.CreatedAt); err != nil {
			return nil, err
		}
		if len(patterns) > 0 {
			if err := json.Unmarshal(patterns, &snap.ErrorPatterns); err != nil {
				return nil, err
			}
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
