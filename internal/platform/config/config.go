package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"maestro"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// Owner is the address allowed to manage sub-owners and, together
	// with sub-owners, the rest of the permissioned surface.
	Owner string `env:"MAESTRO_OWNER" envDefault:"owner"`
	// AuthorizationContract is the registry identity processors accept
	// control messages from.
	AuthorizationContract string `env:"MAESTRO_AUTHORIZATION_CONTRACT" envDefault:"authorization"`
	// MainProcessorAddress is the main-domain processor identity and the
	// only accepted origin for main-domain callbacks.
	MainProcessorAddress string `env:"MAESTRO_MAIN_PROCESSOR" envDefault:"processor-main"`

	TickIntervalSeconds  int `env:"MAESTRO_TICK_INTERVAL_SECONDS" envDefault:"1"`
	OutboxRelayBatchSize int `env:"MAESTRO_OUTBOX_RELAY_BATCH" envDefault:"100"`

	EnableTickKeeper  bool `env:"MAESTRO_ENABLE_TICK_KEEPER" envDefault:"true"`
	EnableOutboxRelay bool `env:"MAESTRO_ENABLE_OUTBOX_RELAY" envDefault:"true"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
