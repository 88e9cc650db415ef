package handler

import (
	"Leadline/internal/engine"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/redis"
	"Leadline/internal/pkg/response"
	"Leadline/internal/pkg/security"
	"Leadline/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	inboxService service.InboxService
	hub          *engine.Hub
}

func NewWsHandler(inboxService service.InboxService, hub *engine.Hub) *WsHandler {
	return &WsHandler{inboxService: inboxService, hub: hub}
}

// Connect 操作员实时连接：装配引擎实例，桥接工作区推送与投影变更信号
func (s *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	if err := s.inboxService.OpenSession(c.Request.Context(), claims); err != nil {
		log.Error("open inbox session failed", "operatorID", claims.OperatorID, "err", err)
		return
	}
	defer s.inboxService.CloseSession(claims.WorkspaceID, claims.OperatorID)

	inst, ok := s.hub.Get(claims.WorkspaceID, claims.OperatorID)
	if !ok {
		return
	}

	channels := []string{
		consts.InboxWorkspaceKey + strconv.FormatUint(claims.WorkspaceID, 10),
		consts.InboxOperatorKey + strconv.FormatUint(claims.OperatorID, 10),
	}
	pubsub := redis.Subscribe(context.Background(), channels...)
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("operator WS connected",
		"workspaceID", claims.WorkspaceID, "operatorID", claims.OperatorID)

	stopChan := make(chan struct{})

	// 读循环：监听客户端主动断开
	go func() {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				close(stopChan)
				return
			}
		}
	}()

	// 写循环：总线消息透传，投影变更折算成轻量刷新信号
	redisCh := pubsub.Channel()
	for {
		select {
		case msg := <-redisCh:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Error("WS 推送失败", "operatorID", claims.OperatorID, "err", err)
				return
			}
		case <-inst.Projection.Changes():
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"projection_changed"}`)); err != nil {
				log.Error("WS 推送失败", "operatorID", claims.OperatorID, "err", err)
				return
			}
		case <-stopChan:
			log.Info("operator WS disconnected", "operatorID", claims.OperatorID)
			return
		}
	}
}
