package dto

import "time"

// SendTextReq 发送文本消息请求
type SendTextReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	Text            string `json:"text" binding:"required,max=4096"`
	ReplyToMsgID    string `json:"reply_to_msg_id"`
}

// SendMediaReq 发送媒体消息请求，object_name 为已上传到对象存储的对象名
type SendMediaReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	ObjectName      string `json:"object_name" binding:"required"`
	MimeType        string `json:"mime_type" binding:"required"`
}

// ReactReq 对消息追加表情回应
type ReactReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	ProviderMsgID   string `json:"provider_msg_id" binding:"required"`
	Emoji           string `json:"emoji" binding:"required,max=16"`
}

// AttachmentDTO 附件响应
type AttachmentDTO struct {
	MimeType string  `json:"mime_type"`
	URL      string  `json:"url"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	CoverURL string  `json:"cover_url,omitempty"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID            string          `json:"id"`
	ProviderMsgID string          `json:"provider_msg_id,omitempty"`
	LocalClientID string          `json:"local_client_id,omitempty"`
	Direction     string          `json:"direction"`
	SenderID      string          `json:"sender_id,omitempty"`
	Text          string          `json:"text"`
	Attachments   []AttachmentDTO `json:"attachments,omitempty"`
	ReplyToMsgID  string          `json:"reply_to_msg_id,omitempty"`
	Reaction      string          `json:"reaction,omitempty"`
	Pending       bool            `json:"pending"` // 乐观发送中，尚未拿到平台回执
	Timestamp     time.Time       `json:"timestamp"`
}

// ThreadMessagesDTO 选中会话后的消息流响应
type ThreadMessagesDTO struct {
	ConversationKey string        `json:"conversation_key"`
	ReadOnly        bool          `json:"read_only"` // 对端身份未解析时只读
	Messages        []*MessageDTO `json:"messages"`
}
