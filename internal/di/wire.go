//go:build wireinject
// +build wireinject

package di

import (
	"FinWalk/pkg/config"
	"FinWalk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,

		// Repositories and domain services
		ProvidePriceStore,
		ProvideScoreCache,
		ProvideSignalSimulator,
		ProvideHoldingSimulator,
		ProvideTwoSampleTest,
		ProvideEngine,
		ProvideRunParams,

		// Use cases
		ProvideSeriesUseCase,
		ProvideWalkForwardUseCase,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
