package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/mongo"
	"context"
	log "log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Reconciler 消息对账：从消息库多策略并发取数，合并去重后输出可渲染消息流
type Reconciler struct {
	messages   mongo.MessageRepo
	probeLimit int
}

func NewReconciler(messages mongo.MessageRepo, probeLimit int) *Reconciler {
	return &Reconciler{messages: messages, probeLimit: probeLimit}
}

// messageKey 消息去重键：平台 id 优先，乐观发送行退到本地 id，最后退库内 id
// 乐观行确认后会带上平台 id，与推送回来的同一条消息自然合并，不产生重复行
func messageKey(m *mongo.Message) string {
	if m.ProviderMsgID != "" {
		return "p:" + m.ProviderMsgID
	}
	if m.LocalClientID != "" {
		return "l:" + m.LocalClientID
	}
	return "d:" + m.ID
}

// Renderable 行是否值得渲染
// 平台会把投递/已读事件持久化成伪消息行，没有任何消息身份又没有内容的行过滤掉
func Renderable(m *mongo.Message) bool {
	if m == nil {
		return false
	}
	if m.ProviderMsgID != "" || m.LocalClientID != "" {
		return true
	}
	if m.RawPayload != nil {
		for _, key := range []string{"id", "msg_id", "message_id"} {
			if v, ok := m.RawPayload[key]; ok {
				if s, ok := v.(string); ok && s != "" {
					return true
				}
			}
		}
	}
	if m.Direction != "" {
		if m.Text != "" || len(m.Attachments) > 0 || !m.Timestamp.IsZero() || m.RawProviderTs > 0 {
			return true
		}
	}
	return false
}

// FetchThreadMessages 四路并发取数：
// 精确会话键 / 稳定对端 id / 无会话键的遗留行按参与方 / 发送或接收方宽松匹配
// 按固定策略顺序合并，同 id 先见先胜；全空时经由最后一条已知消息 id 二次解析会话键重取
func (r *Reconciler) FetchThreadMessages(ctx context.Context, t *model.Thread) ([]*mongo.Message, error) {
	results := make([][]*mongo.Message, 4)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		results[0], err = r.messages.FindByConversationKey(gctx, t.WorkspaceID, t.ConversationKey, r.probeLimit)
		return err
	})
	if !IsPlaceholderPeer(t.PeerID) {
		g.Go(func() error {
			var err error
			results[1], err = r.messages.FindByPeer(gctx, t.WorkspaceID, t.AccountID, t.PeerID, r.probeLimit)
			return err
		})
		g.Go(func() error {
			var err error
			results[2], err = r.messages.FindLegacyByParticipants(gctx, t.WorkspaceID, []string{t.AccountID, t.PeerID}, r.probeLimit)
			return err
		})
		g.Go(func() error {
			var err error
			results[3], err = r.messages.FindLooseByParticipant(gctx, t.WorkspaceID, t.PeerID, r.probeLimit)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeRenderable(results)
	if len(merged) == 0 && t.LastMessageID != "" {
		// 四路全空：借最后一条已知消息反查平台原始分组键，再按键取一次
		recovered, err := r.refetchByLastMessage(ctx, t)
		if err != nil {
			log.WarnContext(ctx, "message refetch by last message id failed",
				"conversation_key", t.ConversationKey, "err", err)
		} else {
			merged = recovered
		}
	}

	sortMessages(merged)
	return merged, nil
}

func (r *Reconciler) refetchByLastMessage(ctx context.Context, t *model.Thread) ([]*mongo.Message, error) {
	anchor, err := r.messages.FindByProviderMsgID(ctx, t.WorkspaceID, t.LastMessageID)
	if err != nil {
		return nil, err
	}
	if anchor == nil || anchor.ConversationKey == "" || anchor.ConversationKey == t.ConversationKey {
		return nil, nil
	}
	rows, err := r.messages.FindByConversationKey(ctx, t.WorkspaceID, anchor.ConversationKey, r.probeLimit)
	if err != nil {
		return nil, err
	}
	return mergeRenderable([][]*mongo.Message{rows}), nil
}

func mergeRenderable(results [][]*mongo.Message) []*mongo.Message {
	seen := make(map[string]struct{})
	var merged []*mongo.Message
	for _, rows := range results {
		for _, m := range rows {
			if !Renderable(m) {
				continue
			}
			key := messageKey(m)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, m)
		}
	}
	return merged
}

// MessageAt 消息的规范化排序时刻
func MessageAt(m *mongo.Message) int64 {
	var primary interface{}
	if !m.Timestamp.IsZero() {
		primary = m.Timestamp
	}
	return PreferredTimestamp(primary, m.RawProviderTs)
}

// sortMessages 规范化时刻升序，等刻保持原有相对次序
func sortMessages(rows []*mongo.Message) {
	sort.SliceStable(rows, func(i, j int) bool {
		return MessageAt(rows[i]) < MessageAt(rows[j])
	})
}
