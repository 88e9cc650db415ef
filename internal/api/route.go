package api

import (
	"Leadline/internal/api/middleware"
	"Leadline/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		inboxGroup := apiGroup.Group("/inbox")
		{
			// WS 连接内部自行鉴权（token 走 query）
			inboxGroup.GET("/ws", group.WSHandler.Connect)

			authGroup := inboxGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/threads", group.InboxHandler.ListThreads)
				authGroup.GET("/search", group.InboxHandler.SearchThreads)
				authGroup.POST("/select", group.InboxHandler.SelectThread)
				authGroup.POST("/read", group.InboxHandler.MarkRead)
				authGroup.POST("/refresh", group.InboxHandler.Refresh)
				authGroup.POST("/sync", group.InboxHandler.SyncNow)

				authGroup.PUT("/priority", group.InboxHandler.SetPriority)
				authGroup.PUT("/spam", group.InboxHandler.SetSpam)
				authGroup.PUT("/visibility", group.InboxHandler.SetVisibility)
				authGroup.PUT("/snooze", group.InboxHandler.Snooze)
			}

			// 指派与批量动作仅限 OWNER
			ownerGroup := authGroup.Group("")
			ownerGroup.Use(middleware.CheckRoles("OWNER"))
			{
				ownerGroup.PUT("/assign", group.InboxHandler.Assign)
				ownerGroup.POST("/bulk", group.BulkHandler.Execute)
			}
		}

		messageGroup := apiGroup.Group("/message")
		messageGroup.Use(middleware.AuthMiddleware())
		{
			messageGroup.POST("/text", group.MessageHandler.SendText)
			messageGroup.POST("/media", group.MessageHandler.SendMedia)
			messageGroup.POST("/react", group.MessageHandler.React)
		}

		tagGroup := apiGroup.Group("/tag")
		tagGroup.Use(middleware.AuthMiddleware())
		{
			tagGroup.GET("/list", group.TagHandler.ListThreadTags)
			tagGroup.POST("", group.TagHandler.ApplyTag)
			tagGroup.DELETE("", group.TagHandler.RemoveTag)
		}

		mediaGroup := apiGroup.Group("/media")
		{
			mediaGroup.Use(middleware.AuthMiddleware())
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
