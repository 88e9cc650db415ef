package engine

import (
	"Leadline/internal/model"
	"sync"
	"time"
)

// override 一个会话上的乐观覆盖补丁
type override struct {
	fields    map[string]interface{}
	appliedAt int64 // 覆盖写入时刻（毫秒）
	expiresAt time.Time
}

// OverrideStore 乐观覆盖层：操作员动作先行生效，等后端确认或 TTL 过期
// 读取快照时叠加在投影之上，不污染投影本体
type OverrideStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	byConvKey map[string]*override
	now       func() time.Time // 测试注入
}

func NewOverrideStore(ttl time.Duration) *OverrideStore {
	return &OverrideStore{
		ttl:       ttl,
		byConvKey: make(map[string]*override),
		now:       time.Now,
	}
}

// Put 登记一批字段覆盖，同会话同字段后写覆盖前写并重置 TTL
func (s *OverrideStore) Put(conversationKey string, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	o, ok := s.byConvKey[conversationKey]
	if !ok {
		o = &override{fields: make(map[string]interface{})}
		s.byConvKey[conversationKey] = o
	}
	for k, v := range fields {
		o.fields[k] = v
	}
	o.appliedAt = now.UnixMilli()
	o.expiresAt = now.Add(s.ttl)
}

// Confirm 后端已确认不早于覆盖时刻的数据，撤销该会话的覆盖
func (s *OverrideStore) Confirm(conversationKey string, sourceAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byConvKey[conversationKey]
	if !ok {
		return
	}
	if sourceAt >= o.appliedAt {
		delete(s.byConvKey, conversationKey)
	}
}

// Discard 无条件撤销覆盖（动作被后端拒绝时回滚）
func (s *OverrideStore) Discard(conversationKey string) {
	s.mu.Lock()
	delete(s.byConvKey, conversationKey)
	s.mu.Unlock()
}

// Apply 把未过期的覆盖叠加到行副本上，过期条目就地清除
func (s *OverrideStore) Apply(rows []model.Thread) []model.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.byConvKey) == 0 {
		return rows
	}
	now := s.now()
	for i := range rows {
		o, ok := s.byConvKey[rows[i].ConversationKey]
		if !ok {
			continue
		}
		if now.After(o.expiresAt) {
			delete(s.byConvKey, rows[i].ConversationKey)
			continue
		}
		for field, value := range o.fields {
			if apply, known := fieldAppliers[field]; known {
				apply(&rows[i], value)
			}
		}
	}
	return rows
}

// Pending 该会话是否仍有未确认覆盖
func (s *OverrideStore) Pending(conversationKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byConvKey[conversationKey]
	if !ok {
		return false
	}
	if s.now().After(o.expiresAt) {
		delete(s.byConvKey, conversationKey)
		return false
	}
	return true
}
