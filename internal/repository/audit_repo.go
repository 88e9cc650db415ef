package repository

import (
	"Leadline/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type AuditRepo interface {
	Append(ctx context.Context, entry *model.AuditLog) error
	AppendBatch(ctx context.Context, entries []*model.AuditLog) error
	ListByThread(ctx context.Context, workspaceID, threadID uint64, limit int) ([]*model.AuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type auditRepoImpl struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) AuditRepo {
	return &auditRepoImpl{db: db}
}

func (s *auditRepoImpl) Append(ctx context.Context, entry *model.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *auditRepoImpl) AppendBatch(ctx context.Context, entries []*model.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&entries).Error
}

func (s *auditRepoImpl) ListByThread(ctx context.Context, workspaceID, threadID uint64, limit int) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND thread_id = ?", workspaceID, threadID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// DeleteOlderThan 审计保留期清理，由定时任务调用
func (s *auditRepoImpl) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.AuditLog{})
	return res.RowsAffected, res.Error
}
