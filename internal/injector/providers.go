package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/runhole/internal/config"
	"github.com/zeusync/runhole/internal/core/metrics"
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	metrics.New,
	server.NewServer,
)

// ProvideLogger builds the process logger at the configured level. Later
// calls to log.Provide return the same instance.
func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.LogLevel())
}
