package secondaryd

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-envconfig"
)

// Config holds the secondary's environment-sourced tunables.
type Config struct {
	Addr         string  `env:"ADDR,default=:5000"`
	ReplicaDelay int     `env:"REPLICA_DELAY,default=0"`
	ErrorRate    float64 `env:"ERROR_RATE,default=0"`
	MasterURL    string  `env:"MASTER_URL,default=http://master:5000"`
	SecondaryURL string  `env:"SECONDARY_URL"`
}

// LoadConfig reads Config from the environment, applying defaults for any
// variable that isn't set, and validates the result.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every tunable that's out of range at once, rather than
// stopping at the first one.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.ReplicaDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("REPLICA_DELAY must be >= 0, got %d", c.ReplicaDelay))
	}
	if c.ErrorRate < 0 || c.ErrorRate > 1 {
		result = multierror.Append(result, fmt.Errorf("ERROR_RATE must be within [0,1], got %v", c.ErrorRate))
	}
	return result.ErrorOrNil()
}
