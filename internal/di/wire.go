//go:build wireinject
// +build wireinject

package di

import (
	"AstroOverlap/pkg/config"
	"AstroOverlap/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideAstroConfig,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,
		ProvideRateLimiter,

		// Repositories
		ProvideEphemerisStore,
		ProvideResultPublisher,
		ProvidePositionProvider,

		// Use cases
		ProvideOverlapEngine,
		ProvideKafkaOverlapHandler,

		// Transport
		ProvideOverlapHandler,
		ProvideHealthHandler,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
