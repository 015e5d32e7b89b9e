//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"mtad/internal"
	"mtad/internal/attribution"
	"mtad/internal/controllers"
	"mtad/internal/journey"
	"mtad/internal/models"
	"mtad/internal/providers"
	"mtad/internal/services"
	"mtad/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,

		journey.NewZstdCompressor,
		journey.NewColdStorage,
		wire.Bind(new(models.ColdStorageInterface), new(*journey.ColdStorage)),

		attribution.NewCalculator,
		services.NewJourneyService,
		services.NewReportService,

		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		journey.NewFileManager,
		journey.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
