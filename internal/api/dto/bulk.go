package dto

// BulkMutationReq 批量变更请求
type BulkMutationReq struct {
	ConversationKeys []string `json:"conversation_keys" binding:"required,min=1"`
	Action           string   `json:"action" binding:"required"` // assign / spam / priority
	AssigneeID       *uint64  `json:"assignee_id"`
	Spam             bool     `json:"spam"`
}
