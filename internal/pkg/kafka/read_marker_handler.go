package kafka

import (
	"Leadline/internal/engine"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
)

// ReadMarkerHandler 消费已读标记表的 CDC 变更
// 标记只会单调前移，直接推进对应操作员实例的追踪器即收敛
type ReadMarkerHandler struct {
	hub *engine.Hub
}

func NewReadMarkerHandler(hub *engine.Hub) *ReadMarkerHandler {
	return &ReadMarkerHandler{hub: hub}
}

func (s *ReadMarkerHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("read marker consumer setup")
	return nil
}

func (s *ReadMarkerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("read marker consumer cleanup")
	return nil
}

func (s *ReadMarkerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-read-marker consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("topic-read-marker consume claim end")
	return nil
}

func (s *ReadMarkerHandler) logic(_ context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, "read_markers")
	if err != nil {
		return err
	}
	if canalMsg.Type == "DELETE" {
		return nil
	}

	for _, row := range canalMsg.Data {
		workspaceID := rowUint64(row, "workspace_id")
		threadID := rowUint64(row, "thread_id")
		operatorID := rowUint64(row, "operator_id")
		if workspaceID == 0 || threadID == 0 || operatorID == 0 {
			continue
		}
		readAt, err := time.ParseInLocation(canalTimeLayout, rowString(row, "last_read_at"), time.Local)
		if err != nil {
			continue
		}
		s.hub.DispatchMarker(workspaceID, threadID, operatorID, readAt.UnixMilli())
	}
	return nil
}
