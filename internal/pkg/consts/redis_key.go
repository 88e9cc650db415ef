package consts

const (
	InboxWorkspaceKey     = "inbox:workspace:"      // 工作区投影变更推送频道
	InboxOperatorKey      = "inbox:operator:"       // 操作员个人推送频道
	InboxColumnShapeKey   = "inbox:column:shape:"   // 镜像表列集降级档位（会话级持久）
	InboxFastPollCursor   = "inbox:fastpoll:cursor:" // 快轮询游标快照
	ThreadSearchDirtyKey  = "thread:search:dirty"   // 待重建搜索索引的会话集合
	ProviderSendDedupeKey = "provider:send:dedupe:" // 发送幂等去重
)

const (
	BulkMutationLock = "inbox:bulk:lock:" // 同一工作区批量操作互斥
	ReconcileLock    = "inbox:reconcile:lock:"
)
