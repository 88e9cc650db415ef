package mongo

import (
	"time"
)

// MMap 原始平台负载，结构不受控，按原样存取
type MMap map[string]interface{}

// Message MongoDB 消息明细模型
// 一行可能是真实消息，也可能是平台顺带持久化的投递/已读事件占位行，
// 渲染层通过 engine.Renderable 过滤
type Message struct {
	ID              string       `bson:"_id,omitempty" json:"id"`
	WorkspaceID     uint64       `bson:"workspace_id" json:"workspaceId"`
	ProviderMsgID   string       `bson:"provider_msg_id,omitempty" json:"providerMsgId"` // 平台消息 id，乐观发送期间为空
	LocalClientID   string       `bson:"local_client_id,omitempty" json:"localClientId"` // 本地乐观发送标记
	ConversationKey string       `bson:"conversation_key,omitempty" json:"conversationKey"`
	AccountID       string       `bson:"account_id" json:"accountId"`
	PeerID          string       `bson:"peer_id,omitempty" json:"peerId"`
	SenderID        string       `bson:"sender_id,omitempty" json:"senderId"`
	RecipientID     string       `bson:"recipient_id,omitempty" json:"recipientId"`
	Direction       string       `bson:"direction,omitempty" json:"direction"` // inbound/outbound，可能缺失
	Text            string       `bson:"text,omitempty" json:"text"`
	Attachments     []Attachment `bson:"attachments,omitempty" json:"attachments"`
	ReplyToMsgID    string       `bson:"reply_to_msg_id,omitempty" json:"replyToMsgId"`
	Reaction        string       `bson:"reaction,omitempty" json:"reaction"`
	RawPayload      MMap         `bson:"raw_payload,omitempty" json:"rawPayload"`
	Timestamp       time.Time    `bson:"timestamp" json:"timestamp"`            // 主时间戳（入库时规范化）
	RawProviderTs   int64        `bson:"raw_provider_ts" json:"rawProviderTs"`  // 平台原始时间戳，秒或毫秒，存原值
	CreatedAt       time.Time    `bson:"created_at" json:"createdAt"`
}

// Attachment 附件
type Attachment struct {
	MimeType string  `bson:"mime_type" json:"mime_type"`
	MediaURL string  `bson:"url" json:"url"`
	Width    int     `bson:"width,omitempty" json:"width"`
	Height   int     `bson:"height,omitempty" json:"height"`
	Duration float64 `bson:"duration,omitempty" json:"duration"`
	CoverURL string  `bson:"cover_url,omitempty" json:"cover_url"`
}
