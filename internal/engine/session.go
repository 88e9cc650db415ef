package engine

import (
	"sync"
	"sync/atomic"
)

// Session 引擎会话：登录时构造，登出时整体丢弃
// 取代散落的页面级全局状态，所有隐式身份/能力信息都收敛到这里
type Session struct {
	WorkspaceID uint64
	OperatorID  uint64
	AccountID   string // 工作区绑定的外部平台账号 id

	aliasSet map[string]struct{} // 账号别名集合，参与方向推断

	columnShape atomic.Int32 // 镜像表列集降级档位，会话内只升不降回

	mu          sync.Mutex
	selectedKey string
	loadSeq     uint64 // 单调递增的加载序号，拦截过期消息加载
}

func NewSession(workspaceID, operatorID uint64, accountID string, aliasIDs []string) *Session {
	s := &Session{
		WorkspaceID: workspaceID,
		OperatorID:  operatorID,
		AccountID:   accountID,
		aliasSet:    make(map[string]struct{}, len(aliasIDs)+1),
	}
	s.aliasSet[accountID] = struct{}{}
	for _, id := range aliasIDs {
		if id != "" {
			s.aliasSet[id] = struct{}{}
		}
	}
	return s
}

// IsSelf 判断 id 是否属于本账号（含别名）
func (s *Session) IsSelf(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s.aliasSet[id]
	return ok
}

// ColumnShape 当前列集档位，0 为最富列集
func (s *Session) ColumnShape() int {
	return int(s.columnShape.Load())
}

// DowngradeColumnShape 降到更贫的列集档位，只前进不回退
func (s *Session) DowngradeColumnShape(shape int) {
	for {
		cur := s.columnShape.Load()
		if int32(shape) <= cur {
			return
		}
		if s.columnShape.CompareAndSwap(cur, int32(shape)) {
			return
		}
	}
}

// RestoreColumnShape 会话恢复时回填已持久化的档位
func (s *Session) RestoreColumnShape(shape int) {
	if shape > 0 {
		s.columnShape.Store(int32(shape))
	}
}

// Select 切换当前选中会话，返回本次加载序号
// 慢请求返回时序号已落后的一律丢弃，防止旧会话数据覆盖新选择
func (s *Session) Select(conversationKey string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedKey = conversationKey
	s.loadSeq++
	return s.loadSeq
}

// IsCurrent 校验加载结果是否仍然属于当前选择
func (s *Session) IsCurrent(conversationKey string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedKey == conversationKey && s.loadSeq == seq
}

// SelectedKey 当前选中的会话键
func (s *Session) SelectedKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedKey
}
