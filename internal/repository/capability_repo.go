package repository

import (
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/redis"
	"context"
	"strconv"
	"time"
)

// 列集档位与轮询游标都是会话级状态，用 redis 跨进程重启续命
const capabilityTTL = 24 * time.Hour

type CapabilityRepo interface {
	ColumnShape(ctx context.Context, workspaceID, operatorID uint64) (int, error)
	SaveColumnShape(ctx context.Context, workspaceID, operatorID uint64, shape int) error
	LoadCursor(ctx context.Context, workspaceID uint64) (time.Time, error)
	SaveCursor(ctx context.Context, workspaceID uint64, at time.Time) error
}

type capabilityRepoImpl struct{}

func NewCapabilityRepo() CapabilityRepo {
	return &capabilityRepoImpl{}
}

func shapeKey(workspaceID, operatorID uint64) string {
	return consts.InboxColumnShapeKey + strconv.FormatUint(workspaceID, 10) + ":" + strconv.FormatUint(operatorID, 10)
}

func cursorKey(workspaceID uint64) string {
	return consts.InboxFastPollCursor + strconv.FormatUint(workspaceID, 10)
}

func (s *capabilityRepoImpl) ColumnShape(ctx context.Context, workspaceID, operatorID uint64) (int, error) {
	val, err := redis.GetValue(ctx, shapeKey(workspaceID, operatorID))
	if err != nil {
		return 0, err
	}
	if val == "" {
		return 0, nil
	}
	return strconv.Atoi(val)
}

func (s *capabilityRepoImpl) SaveColumnShape(ctx context.Context, workspaceID, operatorID uint64, shape int) error {
	return redis.SetWithExpiration(ctx, shapeKey(workspaceID, operatorID), shape, capabilityTTL)
}

func (s *capabilityRepoImpl) LoadCursor(ctx context.Context, workspaceID uint64) (time.Time, error) {
	val, err := redis.GetValue(ctx, cursorKey(workspaceID))
	if err != nil || val == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (s *capabilityRepoImpl) SaveCursor(ctx context.Context, workspaceID uint64, at time.Time) error {
	return redis.SetWithExpiration(ctx, cursorKey(workspaceID), at.UnixMilli(), capabilityTTL)
}
