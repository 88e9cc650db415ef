package job

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/es"
	"Leadline/internal/pkg/logger"
	"Leadline/internal/pkg/redis"
	"Leadline/internal/pkg/util"
	"Leadline/internal/repository"
	"context"
	"errors"
	log "log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchIndexJob 消化脏集合，把变更过的会话重建进搜索索引
// 推送流标脏、定时批量重建，搜索允许分钟级滞后
type SearchIndexJob struct {
	threadRepo repository.ThreadRepo
	tagRepo    repository.TagRepo
	searchRepo es.ThreadRepo
}

func NewSearchIndexJob(threadRepo repository.ThreadRepo, tagRepo repository.TagRepo, searchRepo es.ThreadRepo) *SearchIndexJob {
	return &SearchIndexJob{
		threadRepo: threadRepo,
		tagRepo:    tagRepo,
		searchRepo: searchRepo,
	}
}

func (s *SearchIndexJob) Run() {
	traceID := "job-search-index-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	processingKey := consts.ThreadSearchDirtyKey + ":processing"
	if err := redis.Rename(ctx, consts.ThreadSearchDirtyKey, processingKey); err != nil {
		return // 集合为空
	}

	dirtySet, err := redis.GetSet(ctx, processingKey)
	if err != nil {
		log.ErrorContext(ctx, "get search dirty set error", "err", err)
		return
	}
	threadIDs, err := util.StrSliceToUInt64Slice(dirtySet)
	if err != nil {
		log.ErrorContext(ctx, "convert search dirty set error", "err", err)
		return
	}

	log.InfoContext(ctx, "SearchIndexJob processing", "thread_count", len(threadIDs))

	tagsByThread, err := s.tagRepo.ListByThreads(ctx, threadIDs)
	if err != nil {
		log.ErrorContext(ctx, "load thread tags error", "err", err)
		tagsByThread = map[uint64][]*model.ThreadTag{}
	}

	for _, threadID := range threadIDs {
		if err := s.syncThread(ctx, threadID, tagsByThread[threadID]); err != nil {
			log.ErrorContext(ctx, "sync thread doc error", "thread_id", threadID, "err", err)
			// 失败回标，下一轮重试
			if err := redis.SAdd(ctx, consts.ThreadSearchDirtyKey, threadID); err != nil {
				log.ErrorContext(ctx, "requeue dirty thread error", "thread_id", threadID, "err", err)
			}
		}
	}

	if err := redis.DeleteKey(ctx, processingKey); err != nil {
		log.WarnContext(ctx, "cleanup processing set error", "err", err)
	}
}

// syncThread 单个脏会话向搜索索引收敛
// 镜像行已被硬删（变更流删除事件）时文档一并清除，避免搜索命中死会话
func (s *SearchIndexJob) syncThread(ctx context.Context, threadID uint64, assocs []*model.ThreadTag) error {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.searchRepo.DeleteThread(ctx, threadID)
	}
	if err != nil {
		return err
	}

	doc := &es.ThreadES{
		ID:              thread.ID,
		WorkspaceID:     thread.WorkspaceID,
		ConversationKey: thread.ConversationKey,
		PeerID:          thread.PeerID,
		PeerDisplayName: thread.PeerDisplayName,
		LastMessageText: thread.LastMessageText,
		SummaryText:     thread.SummaryText,
		LeadStatus:      thread.LeadStatus,
	}
	if thread.LastMessageAt != nil {
		doc.LastMessageAt = *thread.LastMessageAt
	}
	for _, assoc := range assocs {
		if assoc.Tag.ID != 0 {
			doc.Tags = append(doc.Tags, assoc.Tag.Name)
		}
	}
	return s.searchRepo.IndexThread(ctx, doc)
}
