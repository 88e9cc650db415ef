package handler

import (
	"Leadline/internal/api/dto"
	"Leadline/internal/pkg/response"
	"Leadline/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	inboxService service.InboxService
}

func NewMessageHandler(inboxService service.InboxService) *MessageHandler {
	return &MessageHandler{inboxService: inboxService}
}

// SendText 发送文本消息
func (s *MessageHandler) SendText(c *gin.Context) {
	var req dto.SendTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	res, err := s.inboxService.SendText(c.Request.Context(), workspaceID, operatorID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendMedia 发送媒体消息
func (s *MessageHandler) SendMedia(c *gin.Context) {
	var req dto.SendMediaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	res, err := s.inboxService.SendMedia(c.Request.Context(), workspaceID, operatorID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// React 表情回应
func (s *MessageHandler) React(c *gin.Context) {
	var req dto.ReactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.React(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
