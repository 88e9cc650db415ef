package dto

import "time"

// ThreadDTO 会话列表项响应
type ThreadDTO struct {
	ID                   uint64     `json:"id"`
	ConversationKey      string     `json:"conversation_key"`
	PeerID               string     `json:"peer_id"`
	PeerDisplayName      string     `json:"peer_display_name"`
	PeerAvatarURL        string     `json:"peer_avatar_url"`
	Priority             bool       `json:"priority"`
	IsSpam               bool       `json:"is_spam"`
	HiddenFromDelegates  bool       `json:"hidden_from_delegates"`
	SharedWithDelegates  bool       `json:"shared_with_delegates"`
	LeadStatus           string     `json:"lead_status"`
	AssignedOperatorID   *uint64    `json:"assigned_operator_id"`
	PrioritySnoozedUntil *time.Time `json:"priority_snoozed_until"`
	SummaryText          string     `json:"summary_text"`
	LastMessageText      string     `json:"last_message_text"`
	LastMessageDirection string     `json:"last_message_direction"`
	LastMessageAt        *time.Time `json:"last_message_at"`
	Unread               bool       `json:"unread"`
	Tags                 []TagDTO   `json:"tags"`
}

// SelectThreadReq 选中会话并加载消息流
type SelectThreadReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
}

// MarkReadReq 标记已读请求
type MarkReadReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	At              int64  `json:"at"` // 毫秒，缺省为服务端当前时刻
}

// AssignThreadReq 指派会话给操作员，assignee_id 为空表示取消指派
type AssignThreadReq struct {
	ConversationKey string  `json:"conversation_key" binding:"required"`
	AssigneeID      *uint64 `json:"assignee_id"`
}

// SpamThreadReq 垃圾标记请求
type SpamThreadReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	Spam            bool   `json:"spam"`
}

// PriorityThreadReq 优先标记请求
type PriorityThreadReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	Priority        bool   `json:"priority"`
}

// VisibilityThreadReq 对协作者隐藏/共享会话
type VisibilityThreadReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	Hidden          bool   `json:"hidden"`
	Shared          bool   `json:"shared"`
}

// SnoozeThreadReq 优先跟进延后请求
type SnoozeThreadReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	Until           int64  `json:"until"` // 毫秒，0 表示取消延后
}

// SearchThreadsReq 会话全文搜索请求
type SearchThreadsReq struct {
	Query string `form:"q" binding:"required"`
	From  int    `form:"from"`
	Size  int    `form:"size"`
}
