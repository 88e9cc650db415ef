package model

import "time"

// ReadMarker 操作员级已读水位，与 Thread.SharedLastReadAt 共同决定未读态
// 写入只允许单调前移，多写者并发收敛于 max
type ReadMarker struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	WorkspaceID uint64    `gorm:"not null;index"`
	ThreadID    uint64    `gorm:"not null;uniqueIndex:idx_thread_operator,priority:1"`
	OperatorID  uint64    `gorm:"not null;uniqueIndex:idx_thread_operator,priority:2"`
	LastReadAt  time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

func (ReadMarker) TableName() string { return "read_markers" }
