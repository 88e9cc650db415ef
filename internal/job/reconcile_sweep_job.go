package job

import (
	"Leadline/internal/engine"
	"Leadline/internal/pkg/logger"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// ReconcileSweepJob 周期性让每个活跃实例做一次全量重载
// 快轮询游标只前进，推送流又是尽力投递，偶发漏事件靠这次兜底收敛
type ReconcileSweepJob struct {
	hub *engine.Hub
}

func NewReconcileSweepJob(hub *engine.Hub) *ReconcileSweepJob {
	return &ReconcileSweepJob{hub: hub}
}

func (s *ReconcileSweepJob) Run() {
	traceID := "job-reconcile-sweep-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	count := 0
	s.hub.ForEach(func(inst *engine.Instance) {
		inst.Scheduler.RequestReload()
		count++
	})
	log.InfoContext(ctx, "ReconcileSweepJob done", "instances", count)
}
