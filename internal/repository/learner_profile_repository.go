package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlearn/lumen-backend/internal/model"
)

// LearnerProfileRepository persists derived learner model profiles.
type LearnerProfileRepository struct {
	pool *pgxpool.Pool
}

// NewLearnerProfileRepository creates a new LearnerProfileRepository.
func NewLearnerProfileRepository(pool *pgxpool.Pool) *LearnerProfileRepository {
	return &LearnerProfileRepository{pool: pool}
}

// GetByLearner retrieves the stored profile for a learner.
func (r *LearnerProfileRepository) GetByLearner(ctx context.Context, learnerID uuid.UUID) (*model.LearnerProfile, error) {
	p := &model.LearnerProfile{}
	var pathways, dimensions, predictions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT learner_id, pathways, dimensions, strengths, weaknesses, predictions, updated_at
		 FROM learner_profiles
		 WHERE learner_id = $1`, learnerID,
	).Scan(&p.LearnerID, &pathways, &dimensions, &p.Strengths, &p.Weaknesses, &predictions, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pathways, &p.Pathways); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dimensions, &p.Dimensions); err != nil {
		return nil, err
	}
	if len(predictions) > 0 {
		if err := json.Unmarshal(predictions, &p.Predictions); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Upsert stores a freshly derived profile, replacing any previous one.
func (r *LearnerProfileRepository) Upsert(ctx context.Context, p *model.LearnerProfile) error {
	pathways, err := json.Marshal(p.Pathways)
	if err != nil {
		return err
	}
	dimensions, err := json.Marshal(p.Dimensions)
	if err != nil {
		return err
	}
	predictions, err := json.Marshal(p.Predictions)
	if err != nil {
		return err
	}

	// Nil slices would encode as SQL NULL and violate the NOT NULL columns.
	strengths := p.Strengths
	if strengths == nil {
		strengths = []string{}
	}
	weaknesses := p.Weaknesses
	if weaknesses == nil {
		weaknesses = []string{}
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO learner_profiles (learner_id, pathways, dimensions, strengths, weaknesses, predictions, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (learner_id) DO UPDATE
		 SET pathways = EXCLUDED.pathways,
		     dimensions = EXCLUDED.dimensions,
		     strengths = EXCLUDED.strengths,
		     weaknesses = EXCLUDED.weaknesses,
		     predictions = EXCLUDED.predictions,
		     updated_at = NOW()
		 RETURNING updated_at`,
		p.LearnerID, pathways, dimensions, strengths, weaknesses, predictions,
	).Scan(&p.UpdatedAt)
}
