package repository

import (
	"Leadline/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReadMarkerRepo interface {
	AdvanceMarker(ctx context.Context, workspaceID, threadID, operatorID uint64, at time.Time) error
	ListByWorkspace(ctx context.Context, workspaceID uint64) ([]*model.ReadMarker, error)
}

type readMarkerRepoImpl struct {
	db *gorm.DB
}

func NewReadMarkerRepo(db *gorm.DB) ReadMarkerRepo {
	return &readMarkerRepoImpl{db: db}
}

// AdvanceMarker 已读水位 upsert，GREATEST 保证只前移，任意到达顺序收敛
func (s *readMarkerRepoImpl) AdvanceMarker(ctx context.Context, workspaceID, threadID, operatorID uint64, at time.Time) error {
	marker := model.ReadMarker{
		WorkspaceID: workspaceID,
		ThreadID:    threadID,
		OperatorID:  operatorID,
		LastReadAt:  at,
		UpdatedAt:   time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "thread_id"}, {Name: "operator_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_read_at": gorm.Expr("GREATEST(last_read_at, VALUES(last_read_at))"),
			"updated_at":   time.Now(),
		}),
	}).Create(&marker).Error
}

func (s *readMarkerRepoImpl) ListByWorkspace(ctx context.Context, workspaceID uint64) ([]*model.ReadMarker, error) {
	var markers []*model.ReadMarker
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Find(&markers).Error
	return markers, err
}
