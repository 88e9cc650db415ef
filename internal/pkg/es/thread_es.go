package es

import "time"

// ThreadES 会话搜索文档，由搜索索引任务从镜像行+标签投喂
type ThreadES struct {
	ID              uint64    `json:"id"`
	WorkspaceID     uint64    `json:"workspace_id"`
	ConversationKey string    `json:"conversation_key"`
	PeerID          string    `json:"peer_id"`
	PeerDisplayName string    `json:"peer_display_name"`
	LastMessageText string    `json:"last_message_text"`
	SummaryText     string    `json:"summary_text"`
	Tags            []string  `json:"tags"`
	LeadStatus      string    `json:"lead_status"`
	LastMessageAt   time.Time `json:"last_message_at"`
}
