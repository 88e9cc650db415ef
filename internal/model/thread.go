package model

import "time"

// Thread 会话镜像主表：本账号与一个外部对端的私信会话
// 行内容由对账引擎从外部平台同步而来，操作员动作在其上叠加
type Thread struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkspaceID     uint64 `gorm:"not null;index:idx_ws_activity,priority:1" json:"workspaceId"`
	ConversationKey string `gorm:"uniqueIndex;type:varchar(128)" json:"conversationKey"` // 平台侧复合标识 accountId_peerId
	AccountID       string `gorm:"type:varchar(64);not null" json:"accountId"`
	PeerID          string `gorm:"type:varchar(64);index" json:"peerId"` // 未解析时为空串
	PeerDisplayName string `gorm:"type:varchar(128)" json:"peerDisplayName"`
	PeerAvatarURL   string `gorm:"type:varchar(512)" json:"peerAvatarUrl"`

	Priority            int8       `gorm:"not null;default:0" json:"priority"`
	IsSpam              int8       `gorm:"not null;default:0" json:"isSpam"`
	HiddenFromDelegates int8       `gorm:"not null;default:0" json:"hiddenFromDelegates"`
	SharedWithDelegates int8       `gorm:"not null;default:0" json:"sharedWithDelegates"`
	LeadStatus          string     `gorm:"type:varchar(16);not null;default:'open'" json:"leadStatus"` // open/qualified/disqualified/removed
	AssignedOperatorID  *uint64    `gorm:"index" json:"assignedOperatorId"`
	PrioritySnoozedUntil *time.Time `json:"prioritySnoozedUntil"`
	PriorityFollowedUpAt *time.Time `json:"priorityFollowedUpAt"`

	SummaryText      string     `gorm:"type:varchar(2048)" json:"summaryText"`
	SummaryUpdatedAt *time.Time `json:"summaryUpdatedAt"`

	SharedLastReadAt *time.Time `json:"sharedLastReadAt"` // 工作区共享已读水位
	LastInboundAt    *time.Time `json:"lastInboundAt"`
	LastOutboundAt   *time.Time `json:"lastOutboundAt"`

	LastMessageID        string     `gorm:"type:varchar(128)" json:"lastMessageId"`
	LastMessageText      string     `gorm:"type:varchar(512)" json:"lastMessageText"`
	LastMessageDirection string     `gorm:"type:varchar(8)" json:"lastMessageDirection"` // inbound/outbound
	LastMessageAt        *time.Time `gorm:"index:idx_ws_activity,priority:2" json:"lastMessageAt"`
	LastMessageRawTs     int64      `gorm:"not null;default:0" json:"lastMessageRawTs"` // 平台原始时间戳（秒或毫秒，存原值）

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}

func (Thread) TableName() string { return "threads" }
