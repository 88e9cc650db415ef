package handler

import (
	"Leadline/internal/api/dto"
	"Leadline/internal/pkg/response"
	"Leadline/internal/service"

	"github.com/gin-gonic/gin"
)

type BulkHandler struct {
	bulkService service.BulkService
}

func NewBulkHandler(bulkService service.BulkService) *BulkHandler {
	return &BulkHandler{bulkService: bulkService}
}

// Execute 批量变更
func (s *BulkHandler) Execute(c *gin.Context) {
	var req dto.BulkMutationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	workspaceID := c.GetUint64("workspace_id")
	operatorID := c.GetUint64("operator_id")

	if err := s.bulkService.Execute(c.Request.Context(), workspaceID, operatorID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
