package handler

import (
	"Leadline/internal/api/dto"
	"Leadline/internal/pkg/response"
	"Leadline/internal/service"

	"github.com/gin-gonic/gin"
)

type TagHandler struct {
	tagService service.TagService
}

func NewTagHandler(tagService service.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// ApplyTag 打标签
func (s *TagHandler) ApplyTag(c *gin.Context) {
	var req dto.ApplyTagReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	res, err := s.tagService.ApplyTag(c.Request.Context(), workspaceID, operatorID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// RemoveTag 摘标签
func (s *TagHandler) RemoveTag(c *gin.Context) {
	var req dto.RemoveTagReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.tagService.RemoveTag(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListThreadTags 会话标签列表
func (s *TagHandler) ListThreadTags(c *gin.Context) {
	conversationKey := c.Query("conversation_key")
	if conversationKey == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")

	res, err := s.tagService.ListThreadTags(c.Request.Context(), workspaceID, conversationKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
