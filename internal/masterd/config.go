package masterd

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-envconfig"
)

// defaultSecondaries is the compiled-in replica set used when SECONDARIES is
// left unset, matching the reference deployment's two-replica topology.
var defaultSecondaries = []string{"http://secondary1:5000", "http://secondary2:5000"}

// Config holds the master's environment-sourced tunables.
type Config struct {
	Addr               string  `env:"ADDR,default=:5000"`
	RetryBaseDelay     float64 `env:"RETRY_BASE_DELAY,default=0.5"`
	RetryMaxDelay      float64 `env:"RETRY_MAX_DELAY,default=5.0"`
	MasterWaitTimeout  float64 `env:"MASTER_WAIT_TIMEOUT,default=0"`
	SecondariesRaw     string  `env:"SECONDARIES"`
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
	if c.RetryBaseDelay <= 0 {
		result = multierror.Append(result, fmt.Errorf("RETRY_BASE_DELAY must be > 0, got %v", c.RetryBaseDelay))
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		result = multierror.Append(result, fmt.Errorf("RETRY_MAX_DELAY (%v) must be >= RETRY_BASE_DELAY (%v)", c.RetryMaxDelay, c.RetryBaseDelay))
	}
	if c.MasterWaitTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("MASTER_WAIT_TIMEOUT must be >= 0, got %v", c.MasterWaitTimeout))
	}
	return result.ErrorOrNil()
}

// Secondaries returns the configured replica URL list, falling back to the
// compiled-in default when SECONDARIES wasn't set.
func (c Config) Secondaries() []string {
	if strings.TrimSpace(c.SecondariesRaw) == "" {
		return append([]string(nil), defaultSecondaries...)
	}
	var urls []string
	for _, part := range strings.Split(c.SecondariesRaw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}
