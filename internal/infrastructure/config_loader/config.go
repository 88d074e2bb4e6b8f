package loader

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Duration 支持在 YAML/JSON 中以 "5s"、"1m30s" 或秒数（数字）表示时间间隔。
type Duration time.Duration

// UnmarshalJSON 解析字符串或数字形式的时长。
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// Std 返回 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Bootstrap 是服务启动配置的根节点，对应 configs/config.yaml。
type Bootstrap struct {
	Server        Server        `json:"server"`
	Data          Data          `json:"data"`
	Social        Social        `json:"social"`
	Storage       Storage       `json:"storage"`
	Messaging     Messaging     `json:"messaging"`
	Observability Observability `json:"observability"`
}

// Server 描述对外监听与鉴权配置。
type Server struct {
	HTTP HTTPServer `json:"http"`
	Auth Auth       `json:"auth"`
}

// HTTPServer 描述 HTTP 监听参数。
type HTTPServer struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr" validate:"required"`
	Timeout Duration `json:"timeout"`
}

// Auth 描述调用方身份的解析方式。
//
// JWTSecret 为空时信任网关注入的 HeaderKey；非空时要求 Bearer HS256 Token。
type Auth struct {
	HeaderKey string `json:"header_key"`
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
	Audience  string `json:"audience"`
}

// Data 聚合数据源配置。
type Data struct {
	Postgres Postgres `json:"postgres"`
}

// Postgres 描述 pgxpool 连接池参数。
type Postgres struct {
	DSN                      string      `json:"dsn" validate:"required"`
	MaxOpenConns             int32       `json:"max_open_conns" validate:"gte=0"`
	MinOpenConns             int32       `json:"min_open_conns" validate:"gte=0"`
	MaxConnLifetime          Duration    `json:"max_conn_lifetime"`
	MaxConnIdleTime          Duration    `json:"max_conn_idle_time"`
	HealthCheckPeriod        Duration    `json:"health_check_period"`
	Schema                   string      `json:"schema"`
	EnablePreparedStatements bool        `json:"enable_prepared_statements"`
	Transaction              Transaction `json:"transaction"`
}

// Transaction 描述 txmanager 默认参数。
type Transaction struct {
	DefaultIsolation string   `json:"default_isolation"`
	DefaultTimeout   Duration `json:"default_timeout"`
	LockTimeout      Duration `json:"lock_timeout"`
	MaxRetries       int      `json:"max_retries" validate:"gte=0"`
	MetricsEnabled   *bool    `json:"metrics_enabled"`
}

// Social 描述业务层参数。
type Social struct {
	SavedVideos SavedVideos `json:"saved_videos"`
	Videos      Videos      `json:"videos"`
	Handlers    Handlers    `json:"handlers"`
}

// SavedVideos 控制收藏视频聚合的扇出并发度。
type SavedVideos struct {
	MaxConcurrency int `json:"max_concurrency" validate:"gte=0,lte=256"`
}

// Videos 控制列表类查询的默认值。
type Videos struct {
	LatestLimit  int `json:"latest_limit" validate:"gte=0,lte=100"`
	DefaultLimit int `json:"default_limit" validate:"gte=0,lte=500"`
}

// Handlers 描述不同类型 Handler 的超时策略。
type Handlers struct {
	DefaultTimeout Duration `json:"default_timeout"`
	CommandTimeout Duration `json:"command_timeout"`
	QueryTimeout   Duration `json:"query_timeout"`
}

// Storage 聚合对象存储配置。
type Storage struct {
	GCS GCS `json:"gcs"`
}

// GCS 描述上传签名 URL 所需参数。
type GCS struct {
	Bucket               string   `json:"bucket"`
	SignerServiceAccount string   `json:"signer_service_account"`
	UploadURLTTL         Duration `json:"upload_url_ttl"`
}

// Messaging 聚合 Pub/Sub 与 Outbox 配置。
type Messaging struct {
	PubSub PubSub `json:"pubsub"`
	Outbox Outbox `json:"outbox"`
}

// PubSub 描述事件发布主题。
type PubSub struct {
	ProjectID        string `json:"project_id"`
	TopicID          string `json:"topic_id"`
	EmulatorEndpoint string `json:"emulator_endpoint"`
	LoggingEnabled   *bool  `json:"logging_enabled"`
	MetricsEnabled   *bool  `json:"metrics_enabled"`
}

// Outbox 描述 Outbox 发布任务参数。
type Outbox struct {
	BatchSize      int      `json:"batch_size" validate:"gte=0,lte=1000"`
	TickInterval   Duration `json:"tick_interval"`
	InitialBackoff Duration `json:"initial_backoff"`
	MaxBackoff     Duration `json:"max_backoff"`
	MaxAttempts    int      `json:"max_attempts" validate:"gte=0"`
	PublishTimeout Duration `json:"publish_timeout"`
	Workers        int      `json:"workers" validate:"gte=0,lte=64"`
	LockTTL        Duration `json:"lock_ttl"`
}

// Observability 描述追踪与指标导出配置。
type Observability struct {
	GlobalAttributes map[string]string `json:"global_attributes"`
	Tracing          *Tracing          `json:"tracing"`
	Metrics          *Metrics          `json:"metrics"`
}

// Tracing 描述追踪导出参数。
type Tracing struct {
	Enabled            bool              `json:"enabled"`
	Exporter           string            `json:"exporter"`
	Endpoint           string            `json:"endpoint"`
	Headers            map[string]string `json:"headers"`
	Insecure           bool              `json:"insecure"`
	SamplingRatio      float64           `json:"sampling_ratio" validate:"gte=0,lte=1"`
	BatchTimeout       Duration          `json:"batch_timeout"`
	ExportTimeout      Duration          `json:"export_timeout"`
	MaxQueueSize       int               `json:"max_queue_size"`
	MaxExportBatchSize int               `json:"max_export_batch_size"`
	Required           bool              `json:"required"`
}

// Metrics 描述指标导出参数。
type Metrics struct {
	Enabled             bool              `json:"enabled"`
	Exporter            string            `json:"exporter"`
	Endpoint            string            `json:"endpoint"`
	Headers             map[string]string `json:"headers"`
	Insecure            bool              `json:"insecure"`
	Interval            Duration          `json:"interval"`
	DisableRuntimeStats bool              `json:"disable_runtime_stats"`
	Required            bool              `json:"required"`
	ResourceAttributes  map[string]string `json:"resource_attributes"`
}
