//go:build wireinject
// +build wireinject

package di

import (
	"FeatureMill/pkg/config"
	"FeatureMill/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideStorage,
		ProvidePublisher,
		ProvideFeedStream,
		ProvideFeatureStore,

		// Ingestion use cases
		ProvideKafkaBarsHandler,
		ProvideBarProcessor,
		ProvideBarCollector,

		// Feature pipeline
		ProvideSchemaRegistry,
		ProvideIndicatorConfig,
		ProvideAssembler,
		ProvideFeatureCache,

		// Sweep
		ProvideTrainer,
		ProvideIndicatorSets,
		ProvideModelGrid,
		ProvideSweep,
		ProvideSweepQueue,
		ProvideSweepService,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
