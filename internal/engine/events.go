package engine

import "Leadline/internal/model"

// 变更事件类型
const (
	EventUpsert = "upsert"
	EventDelete = "delete"
	EventPatch  = "patch"
)

// ChangeEvent 推送流/快轮询统一投递的不可变补丁事件
// 消费侧只有一个串行写者，事件本身绝不携带可变共享状态
type ChangeEvent struct {
	Type            string
	ConversationKey string
	Row             *model.Thread          // upsert 事件的整行数据
	Fields          map[string]interface{} // patch 事件的字段补丁（镜像表列名）
	SourceAt        int64                  // 事件源时刻（规范化毫秒），字段级 LWW 的裁决依据
}
