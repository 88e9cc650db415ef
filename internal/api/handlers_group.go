package api

import "Leadline/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	InboxHandler   *handler.InboxHandler
	MessageHandler *handler.MessageHandler
	TagHandler     *handler.TagHandler
	BulkHandler    *handler.BulkHandler
	MediaHandler   *handler.MediaHandler
	WSHandler      *handler.WsHandler
}
