package loader

import "time"

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// defaultServiceName is used when SERVICE_NAME is missing.
	defaultServiceName = "social"
	// defaultServiceVersion is used when SERVICE_VERSION is missing.
	defaultServiceVersion = "dev"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment = "development"
	// defaultHTTPAddr is the listen address when server.http.addr is empty.
	defaultHTTPAddr = "0.0.0.0:8000"
	// defaultSavedVideosConcurrency bounds the per-item fan-out of the saved videos aggregator.
	defaultSavedVideosConcurrency = 8
	// defaultLatestLimit mirrors the "latest videos" shelf size of the mobile app.
	defaultLatestLimit = 7
	// defaultUploadURLTTL is the lifetime of signed upload URLs.
	defaultUploadURLTTL = 15 * time.Minute
	// defaultAuthHeader carries the gateway-authenticated user id.
	defaultAuthHeader = "x-md-global-user-id"
	// defaultSchema is the postgres schema holding all social tables.
	defaultSchema = "social"
)

// outbox publisher defaults.
const (
	defaultOutboxBatchSize      = 50
	defaultOutboxTickInterval   = time.Second
	defaultOutboxInitialBackoff = 2 * time.Second
	defaultOutboxMaxBackoff     = 2 * time.Minute
	defaultOutboxMaxAttempts    = 20
	defaultOutboxPublishTimeout = 10 * time.Second
	defaultOutboxWorkers        = 4
	defaultOutboxLockTTL        = 30 * time.Second
)
