package model

import "time"

// Tag 工作区标签，含温度/阶段两类规范标签与自由标签
type Tag struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	WorkspaceID uint64 `gorm:"not null;uniqueIndex:idx_ws_tag_name,priority:1"`
	Name        string `gorm:"type:varchar(50);not null;uniqueIndex:idx_ws_tag_name,priority:2"`
	Color       string `gorm:"type:varchar(16)"`
	Icon        string `gorm:"type:varchar(32)"`
	Prompt      string `gorm:"type:varchar(512)"` // 自动打标提示词，由规范标签预置
	CreatedAt   time.Time
}

func (Tag) TableName() string { return "tags" }

// ThreadTag 会话-标签关联
type ThreadTag struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ThreadID  uint64    `gorm:"not null;uniqueIndex:idx_thread_tag,priority:1"`
	TagID     uint64    `gorm:"not null;uniqueIndex:idx_thread_tag,priority:2;index"`
	Source    string    `gorm:"type:varchar(16);not null;default:'manual'"` // manual/automatic
	CreatedAt time.Time

	Tag Tag `gorm:"foreignKey:TagID;references:ID"`
}

func (ThreadTag) TableName() string { return "thread_tags" }
