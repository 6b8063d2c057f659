package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/lumenlearn/lumen-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AnalyticsBatchSize    = 50
	AnalyticsBatchTimeout = 2 * time.Second
	AnalyticsPollTimeout  = 1 * time.Second
)

// AnalyticsWorker drains queued analytics snapshots into PostgreSQL. The
// assessment loop pushes snapshots per response; batching keeps the hot path
// off the database.
type AnalyticsWorker struct {
	repo *repository.AnalyticsRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewAnalyticsWorker(repo *repository.AnalyticsRepository, rdb *redis.Client, log zerolog.Logger) *AnalyticsWorker {
	return &AnalyticsWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "analytics_worker").Logger(),
	}
}

func (w *AnalyticsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnalyticsWorker started")

	batch := make([]*model.AnalyticsSnapshot, 0, AnalyticsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AnalyticsBatchSize || time.Since(lastFlush) >= AnalyticsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AnalyticsPollTimeout, config.WorkerKey.PersistAnalyticsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var snap model.AnalyticsSnapshot
			if err := json.Unmarshal([]byte(item[1]), &snap); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &snap)
		}
	}
}

// flushSafe bulk-inserts the batch, degrading to per-row inserts and finally
// a requeue so snapshots survive a database outage.
func (w *AnalyticsWorker) flushSafe(ctx context.Context, batch []*model.AnalyticsSnapshot) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk snapshot insert failed, using fallback")

		for _, snap := range batch {
			if err := w.repo.Create(ctx, snap); err != nil {
				w.log.Error().Err(err).Msg("single snapshot insert failed, requeueing")
				raw, _ := json.Marshal(snap)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAnalyticsQueue, raw)
			}
		}
	}
}
