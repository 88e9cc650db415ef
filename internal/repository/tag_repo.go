package repository

import (
	"Leadline/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TagRepo interface {
	GetOrCreateTag(ctx context.Context, workspaceID uint64, name, color, icon, prompt string) (*model.Tag, error)
	GetTag(ctx context.Context, workspaceID uint64, tagID uint64) (*model.Tag, error)
	ListByThread(ctx context.Context, threadID uint64) ([]*model.ThreadTag, error)
	ListByThreads(ctx context.Context, threadIDs []uint64) (map[uint64][]*model.ThreadTag, error)
	AddAssociation(ctx context.Context, threadID, tagID uint64, source string) error
	RemoveAssociation(ctx context.Context, threadID, tagID uint64) error
	ReplaceClassTag(ctx context.Context, threadID uint64, tagID uint64, removeTagIDs []uint64, source string, leadStatus *string) error
}

type tagRepoImpl struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) TagRepo {
	return &tagRepoImpl{db: db}
}

// GetOrCreateTag 规范标签按需自动建档，OnConflict DoNothing 避免并发重复
func (s *tagRepoImpl) GetOrCreateTag(ctx context.Context, workspaceID uint64, name, color, icon, prompt string) (*model.Tag, error) {
	tag := model.Tag{
		WorkspaceID: workspaceID,
		Name:        name,
		Color:       color,
		Icon:        icon,
		Prompt:      prompt,
		CreatedAt:   time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error
	if err != nil {
		return nil, err
	}
	// 记录已存在时回查完整数据
	var existingTag model.Tag
	err = s.db.WithContext(ctx).
		Where("workspace_id = ? AND name = ?", workspaceID, name).
		First(&existingTag).Error
	if err != nil {
		return nil, err
	}
	return &existingTag, nil
}

func (s *tagRepoImpl) GetTag(ctx context.Context, workspaceID uint64, tagID uint64) (*model.Tag, error) {
	var tag model.Tag
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, tagID).
		First(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *tagRepoImpl) ListByThread(ctx context.Context, threadID uint64) ([]*model.ThreadTag, error) {
	var assocs []*model.ThreadTag
	err := s.db.WithContext(ctx).
		Preload("Tag").
		Where("thread_id = ?", threadID).
		Find(&assocs).Error
	return assocs, err
}

func (s *tagRepoImpl) ListByThreads(ctx context.Context, threadIDs []uint64) (map[uint64][]*model.ThreadTag, error) {
	var assocs []*model.ThreadTag
	err := s.db.WithContext(ctx).
		Preload("Tag").
		Where("thread_id IN ?", threadIDs).
		Find(&assocs).Error
	if err != nil {
		return nil, err
	}
	res := make(map[uint64][]*model.ThreadTag, len(threadIDs))
	for _, a := range assocs {
		res[a.ThreadID] = append(res[a.ThreadID], a)
	}
	return res, nil
}

func (s *tagRepoImpl) AddAssociation(ctx context.Context, threadID, tagID uint64, source string) error {
	assoc := model.ThreadTag{
		ThreadID:  threadID,
		TagID:     tagID,
		Source:    source,
		CreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&assoc).Error
}

func (s *tagRepoImpl) RemoveAssociation(ctx context.Context, threadID, tagID uint64) error {
	return s.db.WithContext(ctx).
		Where("thread_id = ? AND tag_id = ?", threadID, tagID).
		Delete(&model.ThreadTag{}).Error
}

// ReplaceClassTag 同类标签置换：摘除旧类内标签、挂新标签、镜像 lead_status，
// 三步同一事务，保证两套表示不会长期分叉
func (s *tagRepoImpl) ReplaceClassTag(ctx context.Context, threadID uint64, tagID uint64, removeTagIDs []uint64, source string, leadStatus *string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(removeTagIDs) > 0 {
			if err := tx.Where("thread_id = ? AND tag_id IN ?", threadID, removeTagIDs).
				Delete(&model.ThreadTag{}).Error; err != nil {
				return err
			}
		}
		assoc := model.ThreadTag{
			ThreadID:  threadID,
			TagID:     tagID,
			Source:    source,
			CreatedAt: time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assoc).Error; err != nil {
			return err
		}
		if leadStatus != nil {
			if err := tx.Model(&model.Thread{}).
				Where("id = ?", threadID).
				Update("lead_status", *leadStatus).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
