// Package server 组装对外 HTTP 服务：中间件链、业务路由与运维端点。
package server

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/controllers"
	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/infrastructure/auth"
	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"

	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/metadata"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/go-kratos/kratos/v2/middleware/ratelimit"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 2 * time.Second

// Pinger 用于就绪探针检查依赖（数据库连接池）。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes 聚合注册到 /v1 的业务 Handler。
type Routes struct {
	Users     *controllers.UserHandler
	Videos    *controllers.VideoHandler
	Relations *controllers.RelationHandler
}

// NewRoutes 供 Wire 注入使用。
func NewRoutes(users *controllers.UserHandler, videos *controllers.VideoHandler, relations *controllers.RelationHandler) *Routes {
	return &Routes{Users: users, Videos: videos, Relations: relations}
}

// NewHTTPServer 构造 HTTP Server。telemetry 为 nil 时不挂载指标中间件与 /metrics。
func NewHTTPServer(c *loader.Server, authn *auth.Authenticator, routes *Routes, db Pinger, telemetry *Telemetry, logger log.Logger) *http.Server {
	chain := []middleware.Middleware{
		obsTrace.Server(),
		recovery.Recovery(),
		metadata.Server(
			metadata.WithPropagatedPrefix("x-md-"),
		),
		ratelimit.Server(),
	}
	if telemetry != nil {
		chain = append(chain, kmetrics.Server(
			kmetrics.WithRequests(telemetry.RequestCounter),
			kmetrics.WithSeconds(telemetry.SecondsHistogram),
		))
	}
	if authn != nil {
		chain = append(chain, authn.Middleware())
	}
	chain = append(chain, logging.Server(logger))

	opts := []http.ServerOption{http.Middleware(chain...)}
	if c != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout > 0 {
			opts = append(opts, http.Timeout(c.HTTP.Timeout.Std()))
		}
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))
	srv.Handle("/readyz", readinessHandler(db, logger))
	if telemetry != nil && telemetry.PrometheusRegistry != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	}

	if routes != nil {
		v1 := srv.Route("/v1")
		if routes.Users != nil {
			routes.Users.RegisterRoutes(v1)
		}
		if routes.Videos != nil {
			routes.Videos.RegisterRoutes(v1)
		}
		if routes.Relations != nil {
			routes.Relations.RegisterRoutes(v1)
		}
	}
	return srv
}

// readinessHandler 在数据库可达时返回 200，否则返回 503。
func readinessHandler(db Pinger, logger log.Logger) stdhttp.Handler {
	helper := log.NewHelper(logger)
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		status := dto.Health{Status: "ok", CheckedAt: time.Now().UTC()}
		code := stdhttp.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				helper.WithContext(ctx).Warnf("readiness check failed: %v", err)
				status.Status = "unavailable"
				status.Error = err.Error()
				code = stdhttp.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
}
