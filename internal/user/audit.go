package user

import (
	"context"
	"time"

	"github.com/evrental/evrental/internal/common/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog 是 audit_logs 表的 GORM 模型。只追加，不更新不删除。
type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ActorID   string    `gorm:"index;size:36"` // 系统触发时为空
	Action    string    `gorm:"size:255;not null"`
	Timestamp time.Time `gorm:"index;not null"`
}

// AuditSink 审计落盘。写失败只记日志，绝不让父操作失败。
type AuditSink struct {
	db  *gorm.DB
	log logger.Logger
}

func NewAuditSink(db *gorm.DB, log logger.Logger) *AuditSink {
	return &AuditSink{db: db, log: log}
}

// Record 追加一条审计记录。
func (a *AuditSink) Record(ctx context.Context, actorID, action string) {
	if a == nil || a.db == nil {
		return
	}
	entry := &AuditLog{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		Timestamp: time.Now(),
	}
	if err := a.db.WithContext(ctx).Create(entry).Error; err != nil && a.log != nil {
		a.log.WithFields(map[string]interface{}{
			"actor":  actorID,
			"action": action,
		}).Warnf("audit record failed: %v", err)
	}
}

// Recent 最近 limit 条审计记录（运营排查用）。
func (a *AuditSink) Recent(ctx context.Context, limit int) ([]AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []AuditLog
	err := a.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
