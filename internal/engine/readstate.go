package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"sync"
	"time"
)

// ReadTracker 当前操作员视角的未读推导
// 有效已读水位 = max(本操作员标记, 线程共享标记, 最近一次出站时刻)
// 任何操作员的出站回复都视作已读，多写者按 max 合并收敛
type ReadTracker struct {
	mu        sync.RWMutex
	markers   map[uint64]int64 // thread_id -> 已读水位（毫秒）
	hasSignal bool             // 首次标记加载完成前未读一律判否，避免闪烁
}

func NewReadTracker() *ReadTracker {
	return &ReadTracker{markers: make(map[uint64]int64)}
}

// Load 装入一批已读标记（首次加载或全量刷新），按 max 合并不回退
func (r *ReadTracker) Load(markers []*model.ReadMarker) {
	r.mu.Lock()
	for _, m := range markers {
		at := m.LastReadAt.UnixMilli()
		if at > r.markers[m.ThreadID] {
			r.markers[m.ThreadID] = at
		}
	}
	r.hasSignal = true
	r.mu.Unlock()
}

// Advance 推进单线程已读水位，只前进不后退；返回是否实际发生推进
func (r *ReadTracker) Advance(threadID uint64, at time.Time) bool {
	ms := at.UnixMilli()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasSignal = true
	if ms <= r.markers[threadID] {
		return false
	}
	r.markers[threadID] = ms
	return true
}

// HasSignal 是否已加载过任何已读标记
func (r *ReadTracker) HasSignal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasSignal
}

// MarkerAt 该线程的本地已读水位（毫秒），无标记为 0
func (r *ReadTracker) MarkerAt(threadID uint64) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.markers[threadID]
}

// Unread 线程对当前操作员是否未读
func (r *ReadTracker) Unread(t *model.Thread) bool {
	if t == nil {
		return false
	}
	r.mu.RLock()
	hasSignal := r.hasSignal
	marker := r.markers[t.ID]
	r.mu.RUnlock()
	if !hasSignal {
		return false
	}

	inboundAt := latestInboundAt(t)
	if inboundAt <= 0 {
		return false
	}
	return inboundAt > effectiveReadAt(t, marker)
}

func latestInboundAt(t *model.Thread) int64 {
	var at int64
	if t.LastInboundAt != nil {
		at = t.LastInboundAt.UnixMilli()
	}
	// 最后一条消息是入站且更新时，以它为准
	if t.LastMessageDirection == consts.DirectionInbound {
		if msgAt := ThreadActivityAt(t.LastMessageAt, t.LastMessageRawTs); msgAt > at {
			at = msgAt
		}
	}
	return at
}

func effectiveReadAt(t *model.Thread, marker int64) int64 {
	readAt := marker
	if t.SharedLastReadAt != nil {
		if at := t.SharedLastReadAt.UnixMilli(); at > readAt {
			readAt = at
		}
	}
	if t.LastOutboundAt != nil {
		if at := t.LastOutboundAt.UnixMilli(); at > readAt {
			readAt = at
		}
	}
	if t.LastMessageDirection == consts.DirectionOutbound {
		if at := ThreadActivityAt(t.LastMessageAt, t.LastMessageRawTs); at > readAt {
			readAt = at
		}
	}
	return readAt
}
