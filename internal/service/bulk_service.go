package service

import (
	"Leadline/internal/api/config"
	"Leadline/internal/api/dto"
	"Leadline/internal/engine"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/redis"
	"Leadline/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// BulkService 批量变更服务接口定义
// 同一工作区同时只允许一个批量操作在途，目标全部成功或全部回滚
type BulkService interface {
	Execute(ctx context.Context, workspaceID, operatorID uint64, req *dto.BulkMutationReq) error
}

type bulkServiceImpl struct {
	hub        *engine.Hub
	threadRepo repository.ThreadRepo
	auditRepo  repository.AuditRepo
}

func NewBulkService(hub *engine.Hub, threadRepo repository.ThreadRepo, auditRepo repository.AuditRepo) BulkService {
	return &bulkServiceImpl{
		hub:        hub,
		threadRepo: threadRepo,
		auditRepo:  auditRepo,
	}
}

// Execute 执行批量变更
func (s *bulkServiceImpl) Execute(ctx context.Context, workspaceID, operatorID uint64, req *dto.BulkMutationReq) error {
	if len(req.ConversationKeys) == 0 {
		return ErrBulkEmpty
	}
	switch req.Action {
	case consts.BulkActionAssign, consts.BulkActionSpam, consts.BulkActionPriority:
	default:
		return ErrBulkActionInvalid
	}

	inst, ok := s.hub.Get(workspaceID, operatorID)
	if !ok {
		return UnauthorizedError
	}

	lockKey := consts.BulkMutationLock + strconv.FormatUint(workspaceID, 10)
	token := uuid.NewString()
	locked, err := redis.TryLock(ctx, lockKey, token, 30*time.Second, 1)
	if err != nil {
		log.ErrorContext(ctx, "acquire bulk lock failed", "workspaceID", workspaceID, "err", err)
		return UnExpectedError
	}
	if !locked {
		return ErrBulkBusy
	}
	defer redis.UnLock(context.Background(), lockKey, token)

	executor := engine.NewBulkExecutor(inst.Projection, inst.Overrides,
		s.threadRepo, s.auditRepo, config.Cfg.Engine.BulkCap)
	err = executor.Execute(ctx, inst.Session, engine.BulkRequest{
		ConversationKeys: req.ConversationKeys,
		Action:           req.Action,
		AssigneeID:       req.AssigneeID,
		Spam:             req.Spam,
	})
	if err != nil {
		return translateBulkErr(err)
	}

	// 执行器已回读权威行，快轮询兜底收敛批量窗口内的并发外部写
	inst.Scheduler.RequestPoll()
	return nil
}

func translateBulkErr(err error) error {
	switch {
	case errors.Is(err, engine.ErrBulkTooLarge):
		return ErrBulkTooLarge
	case errors.Is(err, engine.ErrBulkActionInvalid):
		return ErrBulkActionInvalid
	case errors.Is(err, engine.ErrThreadNotFound):
		return ErrThreadNotFound
	case errors.Is(err, engine.ErrBulkWriteFailed):
		return UnExpectedError
	default:
		return err
	}
}
