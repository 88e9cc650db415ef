package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

// BulkRequest 批量变更目标与动作
type BulkRequest struct {
	ConversationKeys []string
	Action           string  // consts.BulkAction*
	AssigneeID       *uint64 // assign 动作的目标操作员
	Spam             bool    // spam 动作的目标值
}

// BulkExecutor 批量变更执行器
// 先对全部目标做乐观补丁，单次批量落库，任一失败则整体回滚并只报一个错
type BulkExecutor struct {
	projection *Projection
	overrides  *OverrideStore
	threads    repository.ThreadRepo
	audits     repository.AuditRepo
	cap        int
}

func NewBulkExecutor(projection *Projection, overrides *OverrideStore,
	threads repository.ThreadRepo, audits repository.AuditRepo, cap int) *BulkExecutor {
	return &BulkExecutor{
		projection: projection,
		overrides:  overrides,
		threads:    threads,
		audits:     audits,
		cap:        cap,
	}
}

// Execute 执行批量变更
func (e *BulkExecutor) Execute(ctx context.Context, s *Session, req BulkRequest) error {
	if len(req.ConversationKeys) == 0 {
		return nil
	}
	if len(req.ConversationKeys) > e.cap {
		return ErrBulkTooLarge
	}

	// 变更前快照，回滚与审计共用
	snapshots := make([]model.Thread, 0, len(req.ConversationKeys))
	for _, key := range req.ConversationKeys {
		row, ok := e.projection.Get(key)
		if !ok {
			fresh, err := e.threads.GetByConversationKey(ctx, s.WorkspaceID, key)
			if err != nil {
				return ErrThreadNotFound
			}
			row = *fresh
		}
		var snap model.Thread
		if err := copier.Copy(&snap, &row); err != nil {
			return err
		}
		snapshots = append(snapshots, snap)
	}

	fields, err := e.fieldsFor(req, snapshots)
	if err != nil {
		return err
	}

	// 乐观先行：投影补丁 + 覆盖层登记，落库确认前列表立即反映新状态
	appliedAt := time.Now().UnixMilli()
	for _, snap := range snapshots {
		e.projection.ApplyFields(snap.ConversationKey, fields, appliedAt)
		e.overrides.Put(snap.ConversationKey, fields)
	}

	ids := make([]uint64, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.ID > 0 {
			ids = append(ids, snap.ID)
		}
	}
	if err := e.threads.BatchUpdateFields(ctx, ids, fields); err != nil {
		e.rollback(snapshots)
		log.ErrorContext(ctx, "bulk mutation failed, rolled back",
			"action", req.Action, "targets", len(snapshots), "err", err)
		return ErrBulkWriteFailed
	}

	// 落库成功即回读权威行收敛投影，不等下一轮快轮询
	if rows, err := e.threads.GetByIDs(ctx, s.WorkspaceID, ids); err != nil {
		log.WarnContext(ctx, "bulk readback failed", "action", req.Action, "err", err)
	} else {
		confirmAt := time.Now().UnixMilli()
		for _, row := range rows {
			e.projection.ApplyRow(row, confirmAt)
		}
	}

	for _, snap := range snapshots {
		e.overrides.Discard(snap.ConversationKey)
	}
	e.appendAudits(ctx, s, req.Action, snapshots, fields)
	return nil
}

// fieldsFor 动作到镜像表字段补丁
// 指派给操作员的线程不允许继续保持私有，hidden_from_delegates 随指派强制清零
func (e *BulkExecutor) fieldsFor(req BulkRequest, snapshots []model.Thread) (map[string]interface{}, error) {
	switch req.Action {
	case consts.BulkActionAssign:
		return map[string]interface{}{
			"assigned_operator_id":  req.AssigneeID,
			"hidden_from_delegates": int8(0),
		}, nil
	case consts.BulkActionSpam:
		spam := int8(0)
		if req.Spam {
			spam = 1
		}
		return map[string]interface{}{"is_spam": spam}, nil
	case consts.BulkActionPriority:
		// 任一目标未置优先则整组置优先，全部已置优先则整组取消
		target := int8(0)
		for _, snap := range snapshots {
			if snap.Priority == 0 {
				target = 1
				break
			}
		}
		return map[string]interface{}{"priority": target}, nil
	}
	return nil, ErrBulkActionInvalid
}

// rollback 恢复全部快照，源时刻取当前值保证盖过乐观补丁
func (e *BulkExecutor) rollback(snapshots []model.Thread) {
	revertAt := time.Now().UnixMilli()
	for i := range snapshots {
		e.overrides.Discard(snapshots[i].ConversationKey)
		row := snapshots[i]
		e.projection.ApplyRow(&row, revertAt)
	}
}

func (e *BulkExecutor) appendAudits(ctx context.Context, s *Session, action string,
	snapshots []model.Thread, fields map[string]interface{}) {
	afterJSON, _ := json.Marshal(fields)
	entries := make([]*model.AuditLog, 0, len(snapshots))
	for _, snap := range snapshots {
		beforeJSON, _ := json.Marshal(SnapshotFields(&snap, fields))
		entries = append(entries, &model.AuditLog{
			WorkspaceID: s.WorkspaceID,
			ThreadID:    snap.ID,
			Action:      action,
			ActorID:     s.OperatorID,
			Before:      string(beforeJSON),
			After:       string(afterJSON),
		})
	}
	if err := e.audits.AppendBatch(ctx, entries); err != nil {
		log.WarnContext(ctx, "append audit logs failed", "action", action, "err", err)
	}
}
