package dto

// TagDTO 标签响应
type TagDTO struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Class  string `json:"class"` // temperature / phase / 空串为普通标签
	Color  string `json:"color"`
	Icon   string `json:"icon"`
	Source string `json:"source,omitempty"` // manual / automatic
}

// ApplyTagReq 打标签请求，名称走同义词折算
type ApplyTagReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	Name            string `json:"name" binding:"required,max=64"`
}

// RemoveTagReq 移除标签请求
type RemoveTagReq struct {
	ConversationKey string `json:"conversation_key" binding:"required"`
	TagID           uint64 `json:"tag_id" binding:"required"`
}
