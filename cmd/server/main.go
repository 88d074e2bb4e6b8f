// Package main 启动社交服务：HTTP API 与 Outbox 发布任务共享同一个 kratos.App。
package main

import (
	"context"
	"flag"
	"os"
	"time"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	loginfra "github.com/bionicotaku/lingo-services-social/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-social/internal/tasks/outbox"

	"github.com/bionicotaku/lingo-utils/observability"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name string
	// Version is the version of the compiled software.
	Version string
)

func newApp(logger log.Logger, meta loader.ServiceMetadata, hs *http.Server, publisher *outbox.PublisherTask) *kratos.App {
	servers := []transport.Server{hs}
	if publisher != nil {
		servers = append(servers, publisher)
	}
	return kratos.New(
		kratos.ID(meta.InstanceID),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{"environment": meta.Environment}),
		kratos.Logger(logger),
		kratos.Server(servers...),
	)
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	confPath, err := loader.ParseConfPath(fs, os.Args[1:])
	if err != nil {
		panic(err)
	}

	bundle, err := loader.Build(loader.Params{ConfPath: confPath, Name: Name, Version: Version})
	if err != nil {
		panic(err)
	}

	logger, err := loginfra.NewLogger(bundle.Service.LoggerConfig())
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	obsShutdown, err := observability.Init(ctx, bundle.ObsConfig,
		observability.WithLogger(logger),
		observability.WithServiceName(bundle.Service.Name),
		observability.WithServiceVersion(bundle.Service.Version),
		observability.WithEnvironment(bundle.Service.Environment),
	)
	if err != nil {
		panic(err)
	}
	defer func() {
		if obsShutdown == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obsShutdown(shutdownCtx); err != nil {
			log.NewHelper(logger).Warnf("shutdown observability: %v", err)
		}
	}()

	app, cleanup, err := wireApp(ctx, bundle, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
