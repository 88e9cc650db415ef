package job

import (
	"Leadline/internal/pkg/logger"
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// 审计保留 90 天
const auditRetention = 90 * 24 * time.Hour

// AuditRetentionJob 周期清理过期审计记录
type AuditRetentionJob struct {
	auditRepo repository.AuditRepo
}

func NewAuditRetentionJob(auditRepo repository.AuditRepo) *AuditRetentionJob {
	return &AuditRetentionJob{auditRepo: auditRepo}
}

func (s *AuditRetentionJob) Run() {
	traceID := "job-audit-retention-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	deleted, err := s.auditRepo.DeleteOlderThan(ctx, time.Now().Add(-auditRetention))
	if err != nil {
		log.ErrorContext(ctx, "audit retention sweep error", "err", err)
		return
	}
	log.InfoContext(ctx, "AuditRetentionJob done", "deleted", deleted)
}
