package kafka

import (
	"Leadline/internal/engine"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const canalTimeLayout = "2006-01-02 15:04:05"

// ThreadHandler 消费镜像表的 CDC 变更，折算成补丁事件喂给引擎
// 同时发一份到 redis 频道，供其他实例与 websocket 客户端转发
type ThreadHandler struct {
	hub *engine.Hub
}

func NewThreadHandler(hub *engine.Hub) *ThreadHandler {
	return &ThreadHandler{hub: hub}
}

func (s *ThreadHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("thread consumer setup")
	return nil
}

func (s *ThreadHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("thread consumer cleanup")
	return nil
}

func (s *ThreadHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-thread consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("topic-thread consume claim end")
	return nil
}

func (s *ThreadHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, "threads")
	if err != nil {
		return err
	}

	for i, row := range canalMsg.Data {
		workspaceID := rowUint64(row, "workspace_id")
		key := rowString(row, "conversation_key")
		if workspaceID == 0 || key == "" {
			continue
		}

		var ev engine.ChangeEvent
		switch canalMsg.Type {
		case "DELETE":
			ev = engine.ChangeEvent{Type: engine.EventDelete, ConversationKey: key, SourceAt: canalMsg.ES}
		case "UPDATE":
			// Old 只含被改的列，据此裁出最小补丁
			var changed map[string]interface{}
			if i < len(canalMsg.Old) {
				changed = canalMsg.Old[i]
			}
			fields := patchFields(row, changed)
			if len(fields) == 0 {
				continue
			}
			ev = engine.ChangeEvent{Type: engine.EventPatch, ConversationKey: key, Fields: fields, SourceAt: canalMsg.ES}
		default: // INSERT：引擎里没有这条会话，补丁会触发一轮快轮询拉全行
			ev = engine.ChangeEvent{Type: engine.EventPatch, ConversationKey: key,
				Fields: patchFields(row, nil), SourceAt: canalMsg.ES}
		}

		s.hub.Dispatch(workspaceID, ev)
		s.fanout(ctx, workspaceID, ev)

		if threadID := rowUint64(row, "id"); threadID > 0 && canalMsg.Type != "DELETE" {
			// 搜索索引延迟重建，交给清扫任务消化
			if err := redis.SAdd(ctx, consts.ThreadSearchDirtyKey, threadID); err != nil {
				log.WarnContext(ctx, "mark thread search dirty failed", "thread_id", threadID, "err", err)
			}
		}
	}
	return nil
}

func (s *ThreadHandler) fanout(ctx context.Context, workspaceID uint64, ev engine.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	channel := consts.InboxWorkspaceKey + strconv.FormatUint(workspaceID, 10)
	if err := redis.Publish(ctx, channel, payload); err != nil {
		log.WarnContext(ctx, "publish thread change failed", "channel", channel, "err", err)
	}
}

// patchFields 把 canal 行值折算成引擎认识的字段补丁
// changed 非空时只取被改的列，否则取行里出现的全部镜像列
func patchFields(row map[string]interface{}, changed map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{})
	for column := range row {
		if changed != nil {
			if _, ok := changed[column]; !ok {
				continue
			}
		}
		value, ok := coerceColumn(column, rowString(row, column))
		if !ok {
			continue
		}
		fields[column] = value
	}
	return fields
}

// coerceColumn canal 把所有列值压成字符串，按列语义还原类型
func coerceColumn(column, raw string) (interface{}, bool) {
	switch column {
	case "priority", "is_spam", "hidden_from_delegates", "shared_with_delegates":
		n, err := strconv.ParseInt(raw, 10, 8)
		if err != nil {
			return nil, false
		}
		return int8(n), true
	case "assigned_operator_id":
		if raw == "" {
			return (*uint64)(nil), true
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return &n, true
	case "last_message_raw_ts":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case "shared_last_read_at", "last_inbound_at", "last_outbound_at", "last_message_at",
		"priority_snoozed_until", "priority_followed_up_at", "summary_updated_at":
		if raw == "" {
			return (*time.Time)(nil), true
		}
		t, err := time.ParseInLocation(canalTimeLayout, raw, time.Local)
		if err != nil {
			return nil, false
		}
		return t, true
	case "lead_status", "peer_id", "peer_display_name", "peer_avatar_url",
		"summary_text", "last_message_id", "last_message_text", "last_message_direction":
		return raw, true
	}
	// 非镜像列（id、workspace_id、时间戳审计列等）不进补丁
	return nil, false
}
