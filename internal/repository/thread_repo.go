package repository

import (
	"Leadline/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ThreadRepo interface {
	ListPage(ctx context.Context, workspaceID uint64, columns []string, offset, limit int) ([]*model.Thread, error)
	ListUpdatedAfter(ctx context.Context, workspaceID uint64, after time.Time, limit int) ([]*model.Thread, error)
	GetByID(ctx context.Context, threadID uint64) (*model.Thread, error)
	GetByConversationKey(ctx context.Context, workspaceID uint64, key string) (*model.Thread, error)
	GetByIDs(ctx context.Context, workspaceID uint64, ids []uint64) ([]*model.Thread, error)
	Upsert(ctx context.Context, thread *model.Thread) error
	UpdateFields(ctx context.Context, threadID uint64, fields map[string]interface{}) error
	BatchUpdateFields(ctx context.Context, ids []uint64, fields map[string]interface{}) error
	AdvanceSharedReadAt(ctx context.Context, threadID uint64, at time.Time) error
}

type threadRepoImpl struct {
	db *gorm.DB
}

func NewThreadRepo(db *gorm.DB) ThreadRepo {
	return &threadRepoImpl{db: db}
}

// ListPage 按最近活跃倒序分页读取镜像表
// columns 为本次尝试的列集（由富到贫降级），由投影器根据能力档位传入
func (s *threadRepoImpl) ListPage(ctx context.Context, workspaceID uint64, columns []string, offset, limit int) ([]*model.Thread, error) {
	var threads []*model.Thread
	tx := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("workspace_id = ?", workspaceID)
	if len(columns) > 0 {
		tx = tx.Select(columns)
	}
	err := tx.Order("last_message_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&threads).Error
	return threads, err
}

// ListUpdatedAfter 快轮询增量：取 updated_at 晚于游标的行
func (s *threadRepoImpl) ListUpdatedAfter(ctx context.Context, workspaceID uint64, after time.Time, limit int) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND updated_at > ?", workspaceID, after).
		Order("updated_at ASC").
		Limit(limit).
		Find(&threads).Error
	return threads, err
}

func (s *threadRepoImpl) GetByID(ctx context.Context, threadID uint64) (*model.Thread, error) {
	var thread model.Thread
	err := s.db.WithContext(ctx).First(&thread, threadID).Error
	return &thread, err
}

func (s *threadRepoImpl) GetByConversationKey(ctx context.Context, workspaceID uint64, key string) (*model.Thread, error) {
	var thread model.Thread
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND conversation_key = ?", workspaceID, key).
		First(&thread).Error
	return &thread, err
}

func (s *threadRepoImpl) GetByIDs(ctx context.Context, workspaceID uint64, ids []uint64) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids).
		Find(&threads).Error
	return threads, err
}

// Upsert 同步写入：按会话键冲突则更新镜像字段，不触碰操作员本地字段
func (s *threadRepoImpl) Upsert(ctx context.Context, thread *model.Thread) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"peer_id", "peer_display_name", "peer_avatar_url",
			"last_message_id", "last_message_text", "last_message_direction",
			"last_message_at", "last_message_raw_ts",
			"last_inbound_at", "last_outbound_at", "updated_at",
		}),
	}).Create(thread).Error
}

func (s *threadRepoImpl) UpdateFields(ctx context.Context, threadID uint64, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ?", threadID).
		Updates(fields).Error
}

// BatchUpdateFields 批量操作的单次批写
func (s *threadRepoImpl) BatchUpdateFields(ctx context.Context, ids []uint64, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id IN ?", ids).
		Updates(fields).Error
}

// AdvanceSharedReadAt 共享已读水位只前移不后退，多写者收敛于最大值
func (s *threadRepoImpl) AdvanceSharedReadAt(ctx context.Context, threadID uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ? AND (shared_last_read_at IS NULL OR shared_last_read_at < ?)", threadID, at).
		Update("shared_last_read_at", at).Error
}
