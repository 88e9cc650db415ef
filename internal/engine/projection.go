package engine

import (
	"Leadline/internal/model"
	"sort"
	"sync"
	"time"
)

// fieldApplier 按镜像表列名把补丁值落到行上，类型尽量宽容
type fieldApplier func(t *model.Thread, v interface{})

var fieldAppliers = map[string]fieldApplier{
	"peer_id":           func(t *model.Thread, v interface{}) { t.PeerID = asString(v) },
	"peer_display_name": func(t *model.Thread, v interface{}) { t.PeerDisplayName = asString(v) },
	"peer_avatar_url":   func(t *model.Thread, v interface{}) { t.PeerAvatarURL = asString(v) },
	"priority":          func(t *model.Thread, v interface{}) { t.Priority = asFlag(v) },
	"is_spam":           func(t *model.Thread, v interface{}) { t.IsSpam = asFlag(v) },
	"hidden_from_delegates": func(t *model.Thread, v interface{}) { t.HiddenFromDelegates = asFlag(v) },
	"shared_with_delegates": func(t *model.Thread, v interface{}) { t.SharedWithDelegates = asFlag(v) },
	"lead_status":           func(t *model.Thread, v interface{}) { t.LeadStatus = asString(v) },
	"assigned_operator_id":  func(t *model.Thread, v interface{}) { t.AssignedOperatorID = asOptUint64(v) },
	"priority_snoozed_until": func(t *model.Thread, v interface{}) { t.PrioritySnoozedUntil = asOptTime(v) },
	"priority_followed_up_at": func(t *model.Thread, v interface{}) { t.PriorityFollowedUpAt = asOptTime(v) },
	"summary_text":       func(t *model.Thread, v interface{}) { t.SummaryText = asString(v) },
	"summary_updated_at": func(t *model.Thread, v interface{}) { t.SummaryUpdatedAt = asOptTime(v) },
	"shared_last_read_at": func(t *model.Thread, v interface{}) { t.SharedLastReadAt = asOptTime(v) },
	"last_inbound_at":     func(t *model.Thread, v interface{}) { t.LastInboundAt = asOptTime(v) },
	"last_outbound_at":    func(t *model.Thread, v interface{}) { t.LastOutboundAt = asOptTime(v) },
	"last_message_id":     func(t *model.Thread, v interface{}) { t.LastMessageID = asString(v) },
	"last_message_text":   func(t *model.Thread, v interface{}) { t.LastMessageText = asString(v) },
	"last_message_direction": func(t *model.Thread, v interface{}) { t.LastMessageDirection = asString(v) },
	"last_message_at":        func(t *model.Thread, v interface{}) { t.LastMessageAt = asOptTime(v) },
	"last_message_raw_ts":    func(t *model.Thread, v interface{}) { t.LastMessageRawTs = asInt64(v) },
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFlag(v interface{}) int8 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int8:
		return x
	case int:
		return int8(x)
	case int64:
		return int8(x)
	case float64:
		if x != 0 {
			return 1
		}
		return 0
	}
	return 0
}

func asInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

func asOptUint64(v interface{}) *uint64 {
	switch x := v.(type) {
	case nil:
		return nil
	case *uint64:
		return x
	case uint64:
		return &x
	case int64:
		u := uint64(x)
		return &u
	case int:
		u := uint64(x)
		return &u
	case float64:
		u := uint64(x)
		return &u
	}
	return nil
}

func asOptTime(v interface{}) *time.Time {
	switch x := v.(type) {
	case nil:
		return nil
	case *time.Time:
		return x
	case time.Time:
		return &x
	case int64, int, float64, string:
		if ms := NormalizeTimestamp(x); ms > 0 {
			t := time.UnixMilli(ms)
			return &t
		}
	}
	return nil
}

// entry 投影内的一条会话，带字段级写入水位
type entry struct {
	row     model.Thread
	rowAt   int64            // 最近一次整行写入的源时刻
	fieldAt map[string]int64 // 字段级补丁的源时刻，整行写入不回退其中更新的字段
	seq     uint64           // 首次进入投影的次序，排序的稳定平局项
}

func (e *entry) maxSourceAt() int64 {
	max := e.rowAt
	for _, at := range e.fieldAt {
		if at > max {
			max = at
		}
	}
	return max
}

// Projection 三条对账路径共享的内存投影
// 写入一律串行（调度器单写者），字段级 LWW 按事件源时刻裁决而非到达顺序
type Projection struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
	notify  chan struct{} // 合并通知：读态/分类派生与推送在变更后重算
}

func NewProjection() *Projection {
	return &Projection{
		entries: make(map[string]*entry),
		notify:  make(chan struct{}, 1),
	}
}

// Changes 投影变更通知通道（合并信号，可能丢合并不丢事实）
func (p *Projection) Changes() <-chan struct{} {
	return p.notify
}

func (p *Projection) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// ApplyRow 整行写入（全量重载/快轮询命中行）
// 字段级源时刻更新的字段保留本地值，防止慢全量覆盖新补丁
func (p *Projection) ApplyRow(row *model.Thread, sourceAt int64) {
	if row == nil || row.ConversationKey == "" {
		return
	}
	p.mu.Lock()
	p.applyRowLocked(row, sourceAt)
	p.mu.Unlock()
	p.signal()
}

func (p *Projection) applyRowLocked(row *model.Thread, sourceAt int64) {
	e, ok := p.entries[row.ConversationKey]
	if !ok {
		p.nextSeq++
		p.entries[row.ConversationKey] = &entry{
			row:     *row,
			rowAt:   sourceAt,
			fieldAt: make(map[string]int64),
			seq:     p.nextSeq,
		}
		return
	}

	if sourceAt < e.rowAt {
		// 行级上来说这是旧数据，但仍可能带新字段；逐字段裁决
		sourceAt = e.rowAt
	}

	preserved := e.row
	e.row = *row
	e.rowAt = sourceAt
	for field, at := range e.fieldAt {
		if at > sourceAt {
			// 字段补丁比整行更新，保留补丁值
			if apply, ok := fieldAppliers[field]; ok {
				apply(&e.row, fieldValue(&preserved, field))
			}
		} else {
			delete(e.fieldAt, field)
		}
	}
}

// ApplyFields 字段补丁写入（推送事件/乐观应用）
func (p *Projection) ApplyFields(conversationKey string, fields map[string]interface{}, sourceAt int64) bool {
	p.mu.Lock()
	e, ok := p.entries[conversationKey]
	if !ok {
		p.mu.Unlock()
		return false
	}
	for field, value := range fields {
		apply, known := fieldAppliers[field]
		if !known {
			continue
		}
		if prev, has := e.fieldAt[field]; has && prev > sourceAt {
			continue // 更新鲜的补丁已落地，按源时刻后到先胜
		}
		apply(&e.row, value)
		e.fieldAt[field] = sourceAt
	}
	p.mu.Unlock()
	p.signal()
	return true
}

// Remove 删除事件：按会话键移除
func (p *Projection) Remove(conversationKey string) {
	p.mu.Lock()
	delete(p.entries, conversationKey)
	p.mu.Unlock()
	p.signal()
}

// ReplaceAll 全量重建。重载集未包含、且没有比重载更新的补丁的条目被清除
func (p *Projection) ReplaceAll(rows []*model.Thread, reloadAt int64) {
	p.mu.Lock()
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row == nil || row.ConversationKey == "" {
			continue
		}
		seen[row.ConversationKey] = struct{}{}
		p.applyRowLocked(row, reloadAt)
	}
	for key, e := range p.entries {
		if _, ok := seen[key]; ok {
			continue
		}
		if e.maxSourceAt() <= reloadAt {
			delete(p.entries, key)
		}
	}
	p.mu.Unlock()
	p.signal()
}

// Get 按会话键取行副本
func (p *Projection) Get(conversationKey string) (model.Thread, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[conversationKey]
	if !ok {
		return model.Thread{}, false
	}
	return e.row, true
}

// Has 会话键是否在投影中
func (p *Projection) Has(conversationKey string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[conversationKey]
	return ok
}

func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Snapshot 投影快照：最近活跃倒序，同刻按首次进入次序稳定排列
func (p *Projection) Snapshot() []model.Thread {
	p.mu.RLock()
	items := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		items = append(items, e)
	}
	p.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		ai := ThreadActivityAt(items[i].row.LastMessageAt, items[i].row.LastMessageRawTs)
		aj := ThreadActivityAt(items[j].row.LastMessageAt, items[j].row.LastMessageRawTs)
		if ai != aj {
			return ai > aj
		}
		return items[i].seq < items[j].seq
	})

	rows := make([]model.Thread, len(items))
	for i, e := range items {
		rows[i] = e.row
	}
	return rows
}

// SnapshotFields 按补丁的列集合取行上的当前值，审计前像用
func SnapshotFields(t *model.Thread, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for field := range fields {
		out[field] = fieldValue(t, field)
	}
	return out
}

// fieldValue 读出行上某列当前值，供整行写入时回填受保护字段
func fieldValue(t *model.Thread, field string) interface{} {
	switch field {
	case "peer_id":
		return t.PeerID
	case "peer_display_name":
		return t.PeerDisplayName
	case "peer_avatar_url":
		return t.PeerAvatarURL
	case "priority":
		return t.Priority
	case "is_spam":
		return t.IsSpam
	case "hidden_from_delegates":
		return t.HiddenFromDelegates
	case "shared_with_delegates":
		return t.SharedWithDelegates
	case "lead_status":
		return t.LeadStatus
	case "assigned_operator_id":
		return t.AssignedOperatorID
	case "priority_snoozed_until":
		return t.PrioritySnoozedUntil
	case "priority_followed_up_at":
		return t.PriorityFollowedUpAt
	case "summary_text":
		return t.SummaryText
	case "summary_updated_at":
		return t.SummaryUpdatedAt
	case "shared_last_read_at":
		return t.SharedLastReadAt
	case "last_inbound_at":
		return t.LastInboundAt
	case "last_outbound_at":
		return t.LastOutboundAt
	case "last_message_id":
		return t.LastMessageID
	case "last_message_text":
		return t.LastMessageText
	case "last_message_direction":
		return t.LastMessageDirection
	case "last_message_at":
		return t.LastMessageAt
	case "last_message_raw_ts":
		return t.LastMessageRawTs
	}
	return nil
}
