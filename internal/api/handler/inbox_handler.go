package handler

import (
	"Leadline/internal/api/dto"
	"Leadline/internal/api/middleware"
	"Leadline/internal/pkg/response"
	"Leadline/internal/service"

	"github.com/gin-gonic/gin"
)

type InboxHandler struct {
	inboxService service.InboxService
}

func NewInboxHandler(inboxService service.InboxService) *InboxHandler {
	return &InboxHandler{inboxService: inboxService}
}

// ListThreads 可见线程列表
func (s *InboxHandler) ListThreads(c *gin.Context) {
	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	res, err := s.inboxService.ListThreads(c.Request.Context(), workspaceID, operatorID, middleware.IsDelegate(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SelectThread 选中会话并加载消息流
func (s *InboxHandler) SelectThread(c *gin.Context) {
	var req dto.SelectThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	res, err := s.inboxService.SelectThread(c.Request.Context(), workspaceID, operatorID, req.ConversationKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkRead 标记已读
func (s *InboxHandler) MarkRead(c *gin.Context) {
	var req dto.MarkReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.MarkRead(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetPriority 优先标记
func (s *InboxHandler) SetPriority(c *gin.Context) {
	var req dto.PriorityThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.SetPriority(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetSpam 垃圾标记
func (s *InboxHandler) SetSpam(c *gin.Context) {
	var req dto.SpamThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.SetSpam(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetVisibility 对协作者隐藏/共享
func (s *InboxHandler) SetVisibility(c *gin.Context) {
	var req dto.VisibilityThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.SetVisibility(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Snooze 优先跟进延后
func (s *InboxHandler) Snooze(c *gin.Context) {
	var req dto.SnoozeThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.Snooze(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Assign 指派会话
func (s *InboxHandler) Assign(c *gin.Context) {
	var req dto.AssignThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.Assign(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SearchThreads 会话全文搜索
func (s *InboxHandler) SearchThreads(c *gin.Context) {
	var req dto.SearchThreadsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")

	res, err := s.inboxService.SearchThreads(c.Request.Context(), workspaceID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Refresh 请求全量重载
func (s *InboxHandler) Refresh(c *gin.Context) {
	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.Refresh(workspaceID, operatorID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SyncNow 请求快轮询
func (s *InboxHandler) SyncNow(c *gin.Context) {
	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.inboxService.SyncNow(workspaceID, operatorID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
