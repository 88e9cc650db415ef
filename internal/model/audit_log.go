package model

import "time"

// AuditLog 操作审计：每次成功的单条/批量状态变更落一行
type AuditLog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	WorkspaceID uint64    `gorm:"not null;index:idx_ws_created,priority:1"`
	ThreadID    uint64    `gorm:"not null;index"`
	Action      string    `gorm:"type:varchar(32);not null"` // assign/spam/priority/tag/phase/read...
	ActorID     uint64    `gorm:"not null"`
	Before      string    `gorm:"type:text"` // 变更前字段快照 JSON
	After       string    `gorm:"type:text"` // 变更后字段快照 JSON
	CreatedAt   time.Time `gorm:"index:idx_ws_created,priority:2"`
}

func (AuditLog) TableName() string { return "audit_logs" }
