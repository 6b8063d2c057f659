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
	AdaptationBatchSize    = 25
	AdaptationBatchTimeout = 2 * time.Second
	AdaptationPollTimeout  = 1 * time.Second
)

// AdaptationWorker mirrors teaching-method adaptations from the live store
// into the durable audit table.
type AdaptationWorker struct {
	repo *repository.AdaptationRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewAdaptationWorker(repo *repository.AdaptationRepository, rdb *redis.Client, log zerolog.Logger) *AdaptationWorker {
	return &AdaptationWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "adaptation_worker").Logger(),
	}
}

func (w *AdaptationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AdaptationWorker started")

	batch := make([]*model.Adaptation, 0, AdaptationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AdaptationBatchSize || time.Since(lastFlush) >= AdaptationBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, AdaptationPollTimeout, config.WorkerKey.PersistAdaptationsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var a model.Adaptation
			if err := json.Unmarshal([]byte(item[1]), &a); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &a)
		}
	}
}

func (w *AdaptationWorker) flushSafe(ctx context.Context, batch []*model.Adaptation) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk adaptation insert failed, using fallback")

		for _, a := range batch {
			if err := w.repo.Insert(ctx, a); err != nil {
				w.log.Error().Err(err).Msg("single adaptation insert failed, requeueing")
				raw, _ := json.Marshal(a)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAdaptationsQueue, raw)
			}
		}
	}
}
