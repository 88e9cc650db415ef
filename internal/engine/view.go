package engine

import (
	"Leadline/internal/model"
	"time"
)

// ThreadView 读路径输出：镜像行 + 派生未读态
type ThreadView struct {
	model.Thread
	Unread bool `json:"unread"`
}

func timeFromMs(ms int64) time.Time {
	return time.UnixMilli(ms)
}
