package service

import (
	"context"
	"encoding/json"
	"time"

	"community_hub/internal/config"
	"community_hub/internal/logger"
	"community_hub/internal/metrics"
	"community_hub/internal/model"
	"community_hub/internal/pkg"
	"community_hub/internal/repository/mysql"

	"gorm.io/gorm"
)

const outboxMaxRetry = 5

// OutboxRelayer 定时从 outbox 表读取领域事件投递到 kafka
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	publisher pkg.Publisher
	batchSize int
	interval  time.Duration
}

func NewOutboxRelayer(db *gorm.DB, publisher pkg.Publisher, cfg config.OutboxConfig) *OutboxRelayer {
	r := &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		publisher: publisher,
		batchSize: cfg.BatchSize,
		interval:  cfg.IntervalDuration(),
	}
	if r.batchSize <= 0 {
		r.batchSize = 200
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	return r
}

// Run 阻塞直到 ctx 取消
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

type outboxEnvelope struct {
	ID          uint64          `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID uint64          `json:"aggregate_id"`
	ActorID     uint64          `json:"actor_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, outboxMaxRetry)
	if err != nil {
		logger.Errorf("outbox query err: %v", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := &rows[i]
		if err = r.send(ctx, ob); err != nil {
			metrics.OutboxFailed.Inc()
			logger.Warnf("outbox send id=%d type=%s: %v", ob.ID, ob.EventType, err)
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				logger.Errorf("outbox retry update id=%d: %v", ob.ID, err)
			}
			continue
		}
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			logger.Errorf("outbox success update id=%d: %v", ob.ID, err)
			continue
		}
		metrics.OutboxPublished.Inc()
		sent++
	}
	return sent
}

func (r *OutboxRelayer) send(ctx context.Context, ob *model.DomainOutbox) error {
	value, err := json.Marshal(outboxEnvelope{
		ID:          ob.ID,
		EventType:   ob.EventType,
		AggregateID: ob.AggregateID,
		ActorID:     ob.ActorID,
		Payload:     json.RawMessage(ob.Payload),
		CreatedAt:   ob.CreatedAt,
	})
	if err != nil {
		return err
	}
	return r.publisher.Send(ctx, pkg.MakeKeyFromID(ob.AggregateID), value)
}

// LogPublisher kafka 未启用时只打印
type LogPublisher struct{}

func (LogPublisher) Send(_ context.Context, key string, value []byte) error {
	logger.Infof("OUTBOX SEND key=%s value=%s", key, value)
	return nil
}
