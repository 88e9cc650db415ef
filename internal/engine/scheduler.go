package engine

import (
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"sync"
	"time"
)

// CursorStore 快轮询游标的跨会话持久化
type CursorStore interface {
	LoadCursor(ctx context.Context, workspaceID uint64) (time.Time, error)
	SaveCursor(ctx context.Context, workspaceID uint64, at time.Time) error
}

// Scheduler 对账调度器：全量重载 / 快轮询 / 推送事件三条路径
// 共用一份投影，全部写入收敛到单个 actor 协程串行执行，
// 并发裁决交给投影的字段级 LWW，而不是依赖到达顺序
type Scheduler struct {
	session    *Session
	projector  *Projector
	projection *Projection
	threads    repository.ThreadRepo
	cursors    CursorStore

	pollInterval time.Duration
	cursor       time.Time // 只前移，慢查询返回的旧水位不回退

	reloadChan chan struct{}
	pollChan   chan struct{}
	patchChan  chan ChangeEvent
	stopChan   chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

func NewScheduler(session *Session, projector *Projector, projection *Projection,
	threads repository.ThreadRepo, cursors CursorStore, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		session:      session,
		projector:    projector,
		projection:   projection,
		threads:      threads,
		cursors:      cursors,
		pollInterval: pollInterval,
		reloadChan:   make(chan struct{}, 1),
		pollChan:     make(chan struct{}, 1),
		patchChan:    make(chan ChangeEvent, 256),
		stopChan:     make(chan struct{}),
	}
}

// Start 启动调度循环，连接时触发一次全量重载
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		if s.cursors != nil {
			if at, err := s.cursors.LoadCursor(ctx, s.session.WorkspaceID); err == nil && !at.IsZero() {
				s.cursor = at
			}
		}
		s.wg.Add(1)
		go s.run(ctx)
		s.RequestReload()
	})
}

func (s *Scheduler) Close() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
}

// RequestReload 请求一次全量重载（连接、手动刷新、变更成功后）
// 通道容量为一，重复请求合并
func (s *Scheduler) RequestReload() {
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}
}

// RequestPoll 请求一次立即快轮询
func (s *Scheduler) RequestPoll() {
	select {
	case s.pollChan <- struct{}{}:
	default:
	}
}

// Enqueue 推送事件入队，队列满时丢弃并靠下一轮快轮询补齐
func (s *Scheduler) Enqueue(ev ChangeEvent) {
	select {
	case s.patchChan <- ev:
	default:
		log.Warn("scheduler patch queue full, event dropped", "conversation_key", ev.ConversationKey)
		s.RequestPoll()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-s.reloadChan:
			s.fullReload(ctx)
		case <-s.pollChan:
			s.fastPoll(ctx)
		case <-ticker.C:
			s.fastPoll(ctx)
		case ev := <-s.patchChan:
			s.applyEvent(ctx, ev)
		}
	}
}

// fullReload 后台对账失败只记日志，等下一轮补齐，绝不中断引擎
func (s *Scheduler) fullReload(ctx context.Context) {
	startedAt := time.Now()
	rows, err := s.projector.LoadWorkspace(ctx, s.session)
	if err != nil {
		log.ErrorContext(ctx, "full reload failed", "workspace_id", s.session.WorkspaceID, "err", err)
		return
	}
	s.projection.ReplaceAll(rows, startedAt.UnixMilli())
	s.advanceCursor(ctx, startedAt)
	log.InfoContext(ctx, "full reload done",
		"workspace_id", s.session.WorkspaceID, "threads", len(rows),
		"cost", time.Since(startedAt).String())
}

func (s *Scheduler) fastPoll(ctx context.Context) {
	since := s.cursor
	rows, err := s.threads.ListUpdatedAfter(ctx, s.session.WorkspaceID, since, 1000)
	if err != nil {
		log.WarnContext(ctx, "fast poll failed", "workspace_id", s.session.WorkspaceID, "err", err)
		return
	}
	var newest time.Time
	for _, row := range rows {
		s.projection.ApplyRow(row, row.UpdatedAt.UnixMilli())
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	if !newest.IsZero() {
		s.advanceCursor(ctx, newest)
	}
}

func (s *Scheduler) advanceCursor(ctx context.Context, at time.Time) {
	if !at.After(s.cursor) {
		return
	}
	s.cursor = at
	if s.cursors != nil {
		if err := s.cursors.SaveCursor(ctx, s.session.WorkspaceID, at); err != nil {
			log.WarnContext(ctx, "persist poll cursor failed", "err", err)
		}
	}
}

// applyEvent 推送事件与快轮询走同一套补丁合并逻辑
// 补丁指向投影中不存在的会话时，立即补一轮快轮询，覆盖漏掉的新增事件
func (s *Scheduler) applyEvent(ctx context.Context, ev ChangeEvent) {
	switch ev.Type {
	case EventDelete:
		s.projection.Remove(ev.ConversationKey)
	case EventUpsert:
		if ev.Row != nil {
			s.projection.ApplyRow(ev.Row, ev.SourceAt)
		}
	case EventPatch:
		if !s.projection.ApplyFields(ev.ConversationKey, ev.Fields, ev.SourceAt) {
			log.InfoContext(ctx, "patch for unknown thread, trigger fast poll",
				"conversation_key", ev.ConversationKey)
			s.fastPoll(ctx)
		}
	}
}
