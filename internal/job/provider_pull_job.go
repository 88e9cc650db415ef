package job

import (
	"Leadline/internal/engine"
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/logger"
	"Leadline/internal/pkg/provider"
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	pullPageSize = 200
	pullPageCap  = 10 // 单账号单轮最多翻页数，剩余留给下一轮
)

// ConversationFetcher 平台网关中批量拉取的能力子集
type ConversationFetcher interface {
	FetchConversationsPage(ctx context.Context, accountID, cursor string, limit int) (*provider.ConversationPage, error)
}

// ProviderPullJob 周期性从平台批量拉会话摘要，写回镜像表
// 镜像表是投影的权威底座，平台批量拉是三条事实来源中最慢但最全的一条
type ProviderPullJob struct {
	hub        *engine.Hub
	fetcher    ConversationFetcher
	threadRepo repository.ThreadRepo
}

func NewProviderPullJob(hub *engine.Hub, fetcher ConversationFetcher, threadRepo repository.ThreadRepo) *ProviderPullJob {
	return &ProviderPullJob{hub: hub, fetcher: fetcher, threadRepo: threadRepo}
}

func (s *ProviderPullJob) Run() {
	traceID := "job-provider-pull-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// 同账号可能有多个操作员在线，按账号去重后各拉一次
	type target struct {
		session     *engine.Session
		workspaceID uint64
	}
	targets := make(map[string]target)
	s.hub.ForEach(func(inst *engine.Instance) {
		if inst.Session.AccountID == "" {
			return
		}
		targets[inst.Session.AccountID] = target{session: inst.Session, workspaceID: inst.Session.WorkspaceID}
	})

	for accountID, tgt := range targets {
		if err := s.pullAccount(ctx, accountID, tgt.workspaceID, tgt.session); err != nil {
			log.ErrorContext(ctx, "provider pull failed", "accountID", accountID, "err", err)
		}
	}
}

func (s *ProviderPullJob) pullAccount(ctx context.Context, accountID string, workspaceID uint64, session *engine.Session) error {
	cursor := ""
	upserted := 0
	for page := 0; page < pullPageCap; page++ {
		res, err := s.fetcher.FetchConversationsPage(ctx, accountID, cursor, pullPageSize)
		if err != nil {
			return err
		}
		for i := range res.Conversations {
			row := s.toThreadRow(workspaceID, session, &res.Conversations[i])
			if row == nil {
				continue
			}
			if err := s.threadRepo.Upsert(ctx, row); err != nil {
				log.WarnContext(ctx, "upsert pulled thread failed",
					"conversationKey", row.ConversationKey, "err", err)
				continue
			}
			upserted++
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	log.InfoContext(ctx, "provider pull done", "accountID", accountID, "threads", upserted)
	return nil
}

// toThreadRow 平台摘要行转镜像行；身份解析失败时保留会话键，对端留空转只读
func (s *ProviderPullJob) toThreadRow(workspaceID uint64, session *engine.Session, conv *provider.ProviderConversation) *model.Thread {
	ident := session.ResolveIdentity(engine.RawRecord{
		AccountID:       conv.AccountID,
		PeerID:          conv.PeerID,
		ConversationKey: conv.ConversationKey,
		RawPayload:      conv.LastMessage,
	})
	if ident.ConversationKey == "" {
		return nil
	}

	row := &model.Thread{
		WorkspaceID:     workspaceID,
		ConversationKey: ident.ConversationKey,
		AccountID:       ident.AccountID,
		PeerID:          ident.PeerID,
		PeerDisplayName: conv.PeerDisplayName,
		PeerAvatarURL:   conv.PeerAvatarURL,
		LeadStatus:      consts.LeadStatusOpen,
	}

	if ms := engine.NormalizeTimestamp(conv.UpdatedAt); ms > 0 {
		at := time.UnixMilli(ms)
		row.LastMessageAt = &at
	}
	if conv.LastMessage != nil {
		if text, ok := conv.LastMessage["text"].(string); ok {
			row.LastMessageText = text
		}
		if id, ok := conv.LastMessage["msg_id"].(string); ok {
			row.LastMessageID = id
		}
		row.LastMessageDirection = session.InferDirection(engine.RawRecord{
			ConversationKey: ident.ConversationKey,
			RawPayload:      conv.LastMessage,
		}, ident.PeerID)
	}
	return row
}
