package kafka

// CanalMessage Canal 推送到 Kafka 的行变更 JSON
// 推送流是尽力投递的：漏事件由引擎的快轮询兜底，这里只管解析
type CanalMessage struct {
	ID       int64    `json:"id"`
	Database string   `json:"database"`
	Table    string   `json:"table"`
	PKNames  []string `json:"pkNames"`
	IsDDL    bool     `json:"isDdl"`
	Type     string   `json:"type"` // INSERT / UPDATE / DELETE
	ES       int64    `json:"es"`   // 源库变更时刻（毫秒），用作补丁的源时刻
	TS       int64    `json:"ts"`
	SQL      string   `json:"sql"`

	// Data 变更后的行数据，canal 把所有列值序列化成字符串
	Data []map[string]interface{} `json:"data"`

	// Old 变更前的旧值，仅 UPDATE 带有且只含被改的列
	Old []map[string]interface{} `json:"old"`

	SqlType   map[string]int    `json:"sqlType"`
	MysqlType map[string]string `json:"mysqlType"`
}
