package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid       = errors.New("参数错误")
	ErrThreadNotFound     = errors.New("会话不存在")
	ErrPeerUnresolved     = errors.New("对方身份未解析，请等待新消息后再试")
	ErrThreadSpam         = errors.New("会话已标记为垃圾")
	ErrTagNotFound        = errors.New("标签不存在")
	ErrTagClassInvalid    = errors.New("标签类别无效")
	ErrPhaseInvalid       = errors.New("销售阶段无效")
	ErrTemperatureInvalid = errors.New("线索温度无效")
	ErrOperatorInvalid    = errors.New("目标操作员无效")
	ErrBulkTooLarge       = errors.New("批量操作数量超过上限")
	ErrBulkEmpty          = errors.New("批量操作目标为空")
	ErrBulkActionInvalid  = errors.New("批量操作动作无效")
	ErrBulkBusy           = errors.New("已有批量操作进行中，请稍后重试")
	ErrProviderSend       = errors.New("消息发送失败，请稍后重试")
	ErrAttachmentInvalid  = errors.New("附件无效或超出大小限制")
	ErrStaleSelection     = errors.New("会话选择已变更")
	ErrWorkspaceMismatch  = errors.New("工作区不匹配")
	UnauthorizedError     = errors.New("权限不足")
	UnExpectedError       = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrThreadNotFound:     NotFound,
	ErrPeerUnresolved:     BadRequest,
	ErrThreadSpam:         BadRequest,
	ErrTagNotFound:        NotFound,
	ErrTagClassInvalid:    BadRequest,
	ErrPhaseInvalid:       BadRequest,
	ErrTemperatureInvalid: BadRequest,
	ErrOperatorInvalid:    BadRequest,
	ErrBulkTooLarge:       BadRequest,
	ErrBulkEmpty:          BadRequest,
	ErrBulkActionInvalid:  BadRequest,
	ErrBulkBusy:           BadRequest,
	ErrProviderSend:       InternalServerError,
	ErrAttachmentInvalid:  BadRequest,
	ErrStaleSelection:     BadRequest,
	ErrWorkspaceMismatch:  Unauthorized,
	UnauthorizedError:     Unauthorized,
	UnExpectedError:       InternalServerError,
}
