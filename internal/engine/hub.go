package engine

import (
	"context"
	"sync"
)

// Instance 一个操作员会话的完整引擎实例
// 登录/连接时装配，断开时 Close，所有可变状态都在实例内部
type Instance struct {
	Session    *Session
	Projection *Projection
	Overrides  *OverrideStore
	Tracker    *ReadTracker
	Scheduler  *Scheduler
	Reconciler *Reconciler
}

// Close 停掉调度循环
func (i *Instance) Close() {
	i.Scheduler.Close()
}

// VisibleSnapshot 读路径：投影快照叠加乐观覆盖
func (i *Instance) VisibleSnapshot() []ThreadView {
	rows := i.Overrides.Apply(i.Projection.Snapshot())
	views := make([]ThreadView, len(rows))
	for idx := range rows {
		views[idx] = ThreadView{
			Thread: rows[idx],
			Unread: i.Tracker.Unread(&rows[idx]),
		}
	}
	return views
}

// Hub 活跃引擎实例登记表，推送流按工作区分发事件
type Hub struct {
	mu          sync.RWMutex
	byWorkspace map[uint64]map[uint64]*Instance // workspace -> operator -> instance
}

func NewHub() *Hub {
	return &Hub{byWorkspace: make(map[uint64]map[uint64]*Instance)}
}

// Register 登记实例并启动其调度循环；同操作员重复连接替换旧实例
func (h *Hub) Register(ctx context.Context, inst *Instance) {
	h.mu.Lock()
	ops, ok := h.byWorkspace[inst.Session.WorkspaceID]
	if !ok {
		ops = make(map[uint64]*Instance)
		h.byWorkspace[inst.Session.WorkspaceID] = ops
	}
	old := ops[inst.Session.OperatorID]
	ops[inst.Session.OperatorID] = inst
	h.mu.Unlock()

	if old != nil {
		old.Close()
	}
	inst.Scheduler.Start(ctx)
}

// Unregister 注销并停掉实例
func (h *Hub) Unregister(workspaceID, operatorID uint64) {
	h.mu.Lock()
	var inst *Instance
	if ops, ok := h.byWorkspace[workspaceID]; ok {
		inst = ops[operatorID]
		delete(ops, operatorID)
		if len(ops) == 0 {
			delete(h.byWorkspace, workspaceID)
		}
	}
	h.mu.Unlock()

	if inst != nil {
		inst.Close()
	}
}

// Get 取操作员的活跃实例
func (h *Hub) Get(workspaceID, operatorID uint64) (*Instance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ops, ok := h.byWorkspace[workspaceID]
	if !ok {
		return nil, false
	}
	inst, ok := ops[operatorID]
	return inst, ok
}

// Dispatch 把变更事件分发给该工作区的所有活跃实例
func (h *Hub) Dispatch(workspaceID uint64, ev ChangeEvent) {
	h.mu.RLock()
	instances := make([]*Instance, 0, 4)
	for _, inst := range h.byWorkspace[workspaceID] {
		instances = append(instances, inst)
	}
	h.mu.RUnlock()

	for _, inst := range instances {
		inst.Scheduler.Enqueue(ev)
	}
}

// DispatchMarker 已读标记推送：直接推进各实例追踪器
func (h *Hub) DispatchMarker(workspaceID, threadID, operatorID uint64, atMs int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for opID, inst := range h.byWorkspace[workspaceID] {
		if opID == operatorID {
			inst.Tracker.Advance(threadID, timeFromMs(atMs))
		}
	}
}

// ForEach 遍历全部活跃实例
func (h *Hub) ForEach(fn func(inst *Instance)) {
	h.mu.RLock()
	all := make([]*Instance, 0, 8)
	for _, ops := range h.byWorkspace {
		for _, inst := range ops {
			all = append(all, inst)
		}
	}
	h.mu.RUnlock()

	for _, inst := range all {
		fn(inst)
	}
}

// CloseAll 进程退出时停掉全部实例
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []*Instance
	for _, ops := range h.byWorkspace {
		for _, inst := range ops {
			all = append(all, inst)
		}
	}
	h.byWorkspace = make(map[uint64]map[uint64]*Instance)
	h.mu.Unlock()

	for _, inst := range all {
		inst.Close()
	}
}
