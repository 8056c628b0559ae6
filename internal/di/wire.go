//go:build wireinject
// +build wireinject

package di

import (
	"BreakCheck/pkg/config"
	"BreakCheck/pkg/server"

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
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Engine services
		ProvideCostModel,
		ProvideSimulator,
		ProvideBuilder,
		ProvideValidator,
		ProvideClassifier,

		// Repositories
		ProvideBarStore,
		ProvideOutcomeStore,
		ProvideVerdictPublisher,
		ProvideVerdictCache,

		// Use cases and surfaces
		ProvideHub,
		ProvideProgressHandler,
		ProvideRunner,
		ProvideCandidatesHandler,
		ProvideJobQueue,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
