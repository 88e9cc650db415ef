package config

// Config 配置主体
type Config struct {
	Server                  ServerConfig            `mapstructure:"server"`
	DB                      DBConfig                `mapstructure:"database"`
	Redis                   RedisConfig             `mapstructure:"redis"`
	Mongo                   MongoConfig             `mapstructure:"mongo"`
	MinIO                   MinIOConfig             `mapstructure:"minio"`
	Elastic                 ElasticConfig           `mapstructure:"elastic"`
	Provider                ProviderConfig          `mapstructure:"provider"`
	Logstash                LogstashConfig          `mapstructure:"logstash"`
	Engine                  EngineConfig            `mapstructure:"engine"`
	Kafka                   KafkaConfig             `mapstructure:"kafka"`
	KafkaThreadConsumer     KafkaThreadConsumer     `mapstructure:"kafka_thread_consumer"`
	KafkaReadMarkerConsumer KafkaReadMarkerConsumer `mapstructure:"kafka_read_marker_consumer"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 消息明细库配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	MainBucket string `mapstructure:"main_bucket"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// ElasticConfig Elastic配置
type ElasticConfig struct {
	Address  string         `mapstructure:"address"`
	Username string         `mapstructure:"username"`
	Password string         `mapstructure:"password"`
	Indices  ElasticIndices `mapstructure:"indices"`
}

// ElasticIndices Elastic索引
type ElasticIndices struct {
	ThreadIndex string `mapstructure:"thread_index"`
}

// ProviderConfig 外部私信平台网关配置
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

// LogstashConfig 远程日志配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// EngineConfig 收件箱对账引擎参数
type EngineConfig struct {
	FastPollInterval   int        `mapstructure:"fast_poll_interval"`   // 毫秒
	OverrideTTL        int        `mapstructure:"override_ttl"`         // 毫秒
	PageSize           int        `mapstructure:"page_size"`            // 镜像表分页大小
	RowCeiling         int        `mapstructure:"row_ceiling"`          // 全量加载硬上限
	MessageProbeLimit  int        `mapstructure:"message_probe_limit"`  // 消息兜底合成时扫描的最近消息数
	BulkCap            int        `mapstructure:"bulk_cap"`             // 批量操作目标上限
	ThreadColumnShapes [][]string `mapstructure:"thread_column_shapes"` // 镜像表列集，由富到贫
}

// ApplyDefaults 空缺项落默认值，保证引擎可在裸配置下启动
func (s *EngineConfig) ApplyDefaults() {
	if s.FastPollInterval <= 0 {
		s.FastPollInterval = 4000
	}
	if s.OverrideTTL <= 0 {
		s.OverrideTTL = 15000
	}
	if s.PageSize <= 0 {
		s.PageSize = 500
	}
	if s.RowCeiling <= 0 {
		s.RowCeiling = 50000
	}
	if s.MessageProbeLimit <= 0 {
		s.MessageProbeLimit = 2000
	}
	if s.BulkCap <= 0 {
		s.BulkCap = 200
	}
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaThreadConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type KafkaReadMarkerConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}
