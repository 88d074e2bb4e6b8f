// Package loader 负责加载 bootstrap 配置、应用环境变量覆盖并完成校验，
// 向 Wire 输出强类型的配置片段。
package loader

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	loginfra "github.com/bionicotaku/lingo-services-social/internal/infrastructure/logger"

	obswire "github.com/bionicotaku/lingo-utils/observability"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	txconfig "github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	envConfPath       = "CONF_PATH"
	envServiceName    = "SERVICE_NAME"
	envServiceVersion = "SERVICE_VERSION"
	envAppEnv         = "APP_ENV"
	envDatabaseURL    = "DATABASE_URL"
	envPort           = "PORT"
	envJWTSecret      = "JWT_SECRET"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
	Name     string // 编译期注入的服务名（可为空）
	Version  string // 编译期注入的版本号（可为空）
}

// ServiceMetadata 保存服务标识信息，供日志和可观测性组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Bootstrap    *Bootstrap
	ObsConfig    obswire.ObservabilityConfig
	Service      ServiceMetadata
	TxConfig     txconfig.Config
	OutboxConfig outboxcfg.Config
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// ObservabilityInfo 将服务元信息转换为 observability.ServiceInfo。
func (m ServiceMetadata) ObservabilityInfo() obswire.ServiceInfo {
	return obswire.ServiceInfo{
		Name:        m.Name,
		Version:     m.Version,
		Environment: m.Environment,
	}
}

// LoggerConfig 将服务元信息转换为日志配置。
func (m ServiceMetadata) LoggerConfig() loginfra.Config {
	return loginfra.Config{
		Service: m.Name,
		Version: m.Version,
		HostID:  m.InstanceID,
		Env:     m.Environment,
	}
}

// ParseConfPath 解析命令行中的 -conf 参数。
func ParseConfPath(fs *flag.FlagSet, args []string) (string, error) {
	var confPath string
	fs.StringVar(&confPath, "conf", "", "config path, eg: -conf configs/config.yaml")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return confPath, nil
}

// Build 从 bootstrap 配置文件构建 Bundle，包含配置对象和服务元信息。
//
// 流程：
// 1. 解析配置路径（应用回退规则）并加载 .env 文件
// 2. 加载配置、应用环境变量覆盖、填充默认值并执行结构体校验
// 3. 推导服务元信息（环境变量 > 编译期注入 > 默认值）
// 4. 转换可观测性、事务与 Outbox 配置
func Build(params Params) (*Bundle, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	bootstrap, err := loadBootstrap(confPath)
	if err != nil {
		return nil, err
	}

	meta := buildServiceMetadata(params.Name, params.Version)
	return &Bundle{
		Bootstrap:    bootstrap,
		ObsConfig:    toObservabilityConfig(bootstrap.Observability, meta),
		Service:      meta,
		TxConfig:     toTxManagerConfig(bootstrap.Data.Postgres.Transaction),
		OutboxConfig: toOutboxConfig(bootstrap.Data.Postgres.Schema, bootstrap.Messaging.Outbox),
	}, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

// loadBootstrap 从指定路径加载并解析 Bootstrap 配置。
//
// 错误阶段：
//   - "load": 文件读取失败
//   - "scan": YAML/JSON 解析失败
//   - "validate": 配置校验失败（必填字段缺失、约束不满足）
func loadBootstrap(confPath string) (*Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(&bc)
	applyDefaults(&bc)

	if err := Validate(&bc); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return &bc, nil
}

// Validate 对 Bootstrap 执行结构体标签校验。
func Validate(bc *Bootstrap) error {
	if bc == nil {
		return fmt.Errorf("bootstrap is nil")
	}
	return validator.New().Struct(bc)
}

// applyEnvOverrides 应用环境变量覆盖配置文件中的特定字段。
//
// 支持的环境变量：
//   - DATABASE_URL: 覆盖 data.postgres.dsn
//   - PORT: 覆盖 server.http.addr 的端口部分（保留 host），用于 Cloud Run 动态端口
//   - JWT_SECRET: 覆盖 server.auth.jwt_secret
//
// 环境变量为空时不覆盖，保留配置文件原值。
func applyEnvOverrides(bc *Bootstrap) {
	if bc == nil {
		return
	}
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		bc.Data.Postgres.DSN = dsn
	}
	if port := os.Getenv(envPort); port != "" {
		bc.Server.HTTP.Addr = replacePort(bc.Server.HTTP.Addr, port)
	}
	if secret := os.Getenv(envJWTSecret); secret != "" {
		bc.Server.Auth.JWTSecret = secret
	}
}

// applyDefaults 为缺省字段填充默认值。
func applyDefaults(bc *Bootstrap) {
	if bc.Server.HTTP.Addr == "" {
		bc.Server.HTTP.Addr = defaultHTTPAddr
	}
	if bc.Server.Auth.HeaderKey == "" {
		bc.Server.Auth.HeaderKey = defaultAuthHeader
	}
	bc.Server.Auth.HeaderKey = strings.ToLower(bc.Server.Auth.HeaderKey)
	if bc.Data.Postgres.Schema == "" {
		bc.Data.Postgres.Schema = defaultSchema
	}
	if bc.Social.SavedVideos.MaxConcurrency == 0 {
		bc.Social.SavedVideos.MaxConcurrency = defaultSavedVideosConcurrency
	}
	if bc.Social.Videos.LatestLimit == 0 {
		bc.Social.Videos.LatestLimit = defaultLatestLimit
	}
	if bc.Storage.GCS.UploadURLTTL == 0 {
		bc.Storage.GCS.UploadURLTTL = Duration(defaultUploadURLTTL)
	}

	ob := &bc.Messaging.Outbox
	if ob.BatchSize == 0 {
		ob.BatchSize = defaultOutboxBatchSize
	}
	if ob.TickInterval == 0 {
		ob.TickInterval = Duration(defaultOutboxTickInterval)
	}
	if ob.InitialBackoff == 0 {
		ob.InitialBackoff = Duration(defaultOutboxInitialBackoff)
	}
	if ob.MaxBackoff == 0 {
		ob.MaxBackoff = Duration(defaultOutboxMaxBackoff)
	}
	if ob.MaxAttempts == 0 {
		ob.MaxAttempts = defaultOutboxMaxAttempts
	}
	if ob.PublishTimeout == 0 {
		ob.PublishTimeout = Duration(defaultOutboxPublishTimeout)
	}
	if ob.Workers == 0 {
		ob.Workers = defaultOutboxWorkers
	}
	if ob.LockTTL == 0 {
		ob.LockTTL = Duration(defaultOutboxLockTTL)
	}
}

// buildServiceMetadata 构建服务元信息，用于日志、追踪和指标标签。
//
// 数据来源优先级：环境变量 > 编译期注入值 > 默认值。
func buildServiceMetadata(name, version string) ServiceMetadata {
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        firstNonEmpty(os.Getenv(envServiceName), name, defaultServiceName),
		Version:     firstNonEmpty(os.Getenv(envServiceVersion), version, defaultServiceVersion),
		Environment: firstNonEmpty(os.Getenv(envAppEnv), defaultEnvironment),
		InstanceID:  host,
	}
}

// loadEnvFiles best-effort 加载配置相关的 .env 文件，失败时忽略以保持幂等。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 按优先级返回存在的 .env 文件：confPath 目录优先，其次当前工作目录；
// 每个目录中 .env.local 先于 .env。godotenv 不会覆盖已设置的变量，因此先加载者优先。
func envFileCandidates(confPath string) []string {
	dirs := orderedDirs(confPath)
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range dirs {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}
	return dirs
}

// toObservabilityConfig 将配置文件中的 observability 段转换为 observability 包的规范化结构。
func toObservabilityConfig(src Observability, meta ServiceMetadata) obswire.ObservabilityConfig {
	cfg := obswire.ObservabilityConfig{
		GlobalAttributes: cloneStringMap(src.GlobalAttributes),
	}
	if tr := src.Tracing; tr != nil {
		cfg.Tracing = &obswire.TracingConfig{
			Enabled:            tr.Enabled,
			Exporter:           tr.Exporter,
			Endpoint:           tr.Endpoint,
			Headers:            cloneStringMap(tr.Headers),
			Insecure:           tr.Insecure,
			SamplingRatio:      tr.SamplingRatio,
			BatchTimeout:       tr.BatchTimeout.Std(),
			ExportTimeout:      tr.ExportTimeout.Std(),
			MaxQueueSize:       tr.MaxQueueSize,
			MaxExportBatchSize: tr.MaxExportBatchSize,
			Required:           tr.Required,
			ServiceName:        meta.Name,
			ServiceVersion:     meta.Version,
			Environment:        meta.Environment,
		}
	}
	if mt := src.Metrics; mt != nil {
		cfg.Metrics = &obswire.MetricsConfig{
			Enabled:             mt.Enabled,
			Exporter:            mt.Exporter,
			Endpoint:            mt.Endpoint,
			Headers:             cloneStringMap(mt.Headers),
			Insecure:            mt.Insecure,
			Interval:            mt.Interval.Std(),
			DisableRuntimeStats: mt.DisableRuntimeStats,
			Required:            mt.Required,
			ResourceAttributes:  cloneStringMap(mt.ResourceAttributes),
		}
	}
	return cfg
}

func toTxManagerConfig(tx Transaction) txconfig.Config {
	return txconfig.Config{
		DefaultIsolation: tx.DefaultIsolation,
		DefaultTimeout:   tx.DefaultTimeout.Std(),
		LockTimeout:      tx.LockTimeout.Std(),
		MaxRetries:       tx.MaxRetries,
		MetricsEnabled:   tx.MetricsEnabled,
	}
}

// toOutboxConfig 将 messaging.outbox 转换为共享 Outbox 组件的配置，表位于业务 schema 下。
func toOutboxConfig(schema string, ob Outbox) outboxcfg.Config {
	return outboxcfg.Config{
		Schema: schema,
		Publisher: outboxcfg.PublisherConfig{
			BatchSize:      ob.BatchSize,
			TickInterval:   ob.TickInterval.Std(),
			InitialBackoff: ob.InitialBackoff.Std(),
			MaxBackoff:     ob.MaxBackoff.Std(),
			MaxAttempts:    ob.MaxAttempts,
			PublishTimeout: ob.PublishTimeout.Std(),
			Workers:        ob.Workers,
			LockTTL:        ob.LockTTL.Std(),
		},
	}
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// replacePort 替换地址中的端口部分，保留 host。
//   - "0.0.0.0:8000" -> "0.0.0.0:8080"
//   - "[::1]:8000" -> "[::1]:8080"
//   - 无法解析时回退为 "0.0.0.0:<port>"
func replacePort(addr, newPort string) string {
	if addr == "" {
		return "0.0.0.0:" + newPort
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "0.0.0.0:" + newPort
	}
	return net.JoinHostPort(host, newPort)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
