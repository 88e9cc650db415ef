package consts

// 消息方向
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// 线索状态（leadStatus 历史镜像字段）
const (
	LeadStatusOpen         = "open"
	LeadStatusQualified    = "qualified"
	LeadStatusDisqualified = "disqualified"
	LeadStatusRemoved      = "removed"
)

// 标签来源
const (
	TagSourceManual    = "manual"
	TagSourceAutomatic = "automatic"
)

// 批量操作动作
const (
	BulkActionAssign   = "assign"
	BulkActionSpam     = "spam"
	BulkActionPriority = "priority"
)

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

const DefaultAvatarURL = "default_avatar.png"
