package wire

import (
	"Leadline/internal/api"
	"Leadline/internal/api/config"
	"Leadline/internal/api/handler"
	"Leadline/internal/engine"
	"Leadline/internal/job"
	"Leadline/internal/pkg/cron"
	"Leadline/internal/pkg/es"
	"Leadline/internal/pkg/kafka"
	mongorepo "Leadline/internal/pkg/mongo"
	"Leadline/internal/pkg/provider"
	"Leadline/internal/repository"
	"Leadline/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	Hub          *engine.Hub
	InboxService service.InboxService
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	threadRepo := repository.NewThreadRepo(db)
	readMarkerRepo := repository.NewReadMarkerRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	tagRepo := repository.NewTagRepo(db)
	capabilityRepo := repository.NewCapabilityRepo()
	messageRepo := mongorepo.NewMessageRepo(mongoDB)
	searchRepo := es.NewThreadRepo(es.Client)

	hub := engine.NewHub()
	providerClient := provider.NewClient()

	inboxService := service.NewInboxService(hub, threadRepo, readMarkerRepo, auditRepo,
		capabilityRepo, tagRepo, messageRepo, searchRepo, providerClient)
	tagService := service.NewTagService(hub, tagRepo, threadRepo, auditRepo)
	bulkService := service.NewBulkService(hub, threadRepo, auditRepo)

	handlers := &api.HandlersGroup{
		InboxHandler:   handler.NewInboxHandler(inboxService),
		MessageHandler: handler.NewMessageHandler(inboxService),
		TagHandler:     handler.NewTagHandler(tagService),
		BulkHandler:    handler.NewBulkHandler(bulkService),
		MediaHandler:   handler.NewMediaHandler(),
		WSHandler:      handler.NewWsHandler(inboxService, hub),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, hub)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(
		job.NewSearchIndexJob(threadRepo, tagRepo, searchRepo),
		job.NewAuditRetentionJob(auditRepo),
		job.NewReconcileSweepJob(hub),
		job.NewProviderPullJob(hub, providerClient, threadRepo),
	)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		Hub:          hub,
		InboxService: inboxService,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}
