package mysql

import (
	"context"
	"encoding/json"
	"time"

	"community_hub/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// insertOutbox 在业务事务内写入领域事件
func insertOutbox(tx *gorm.DB, event string, aggregateID, actorID uint64, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["event_time"] = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&model.DomainOutbox{
		EventType:   event,
		AggregateID: aggregateID,
		ActorID:     actorID,
		Payload:     datatypes.JSON(data),
		Status:      model.OutboxPending,
	}).Error
}

// List 按 id 顺序取待投递事件，失败过的事件在重试上限内继续投递
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.DomainOutbox, error) {
	var list []model.DomainOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败，记录重试次数
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.DomainOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.DomainOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

func (r *OutboxRepository) CountByType(ctx context.Context, event string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.DomainOutbox{}).Where("event_type = ?", event).Count(&n).Error
	return n, err
}
