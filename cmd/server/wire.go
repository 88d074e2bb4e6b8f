//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/controllers"
	"github.com/bionicotaku/lingo-services-social/internal/infrastructure/auth"
	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-social/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-social/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/bionicotaku/lingo-services-social/internal/server"
	"github.com/bionicotaku/lingo-services-social/internal/services"
	"github.com/bionicotaku/lingo-services-social/internal/tasks/outbox"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp init kratos application.
func wireApp(context.Context, *loader.Bundle, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		loader.ProviderSet,
		database.ProviderSet,
		txmanager.NewComponent,
		txmanager.ProvideManager,
		repositories.ProviderSet,
		gcs.ProviderSet,
		provideUploadSigner,
		services.ProviderSet,
		controllers.ProviderSet,
		auth.ProviderSet,
		server.ProviderSet,
		wire.Bind(new(server.Pinger), new(*pgxpool.Pool)),
		providePublisher,
		outbox.ProviderSet,
		newApp,
	))
}
