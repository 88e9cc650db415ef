package engine

import "github.com/pkg/errors"

// 引擎内部哨兵错误，服务层负责折算成面向操作员的错误
var (
	ErrThreadNotFound    = errors.New("thread not found in projection or mirror")
	ErrBulkTooLarge      = errors.New("bulk targets exceed cap")
	ErrBulkActionInvalid = errors.New("unknown bulk action")
	ErrBulkWriteFailed   = errors.New("bulk batched write failed")
)
