package main

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// EnvDefaults supplies environment-sourced fallbacks for flags the operator
// hasn't set explicitly, read via EnvPrefix-style struct tags at startup.
type EnvDefaults struct {
	ConfigPath  string `env:"EPDGCTL_CONFIG"`
	LogLevel    string `env:"EPDGCTL_LOG_LEVEL,default=info"`
	DNSResolver string `env:"EPDGCTL_DNS_RESOLVER,default=8.8.8.8:53"`
}

func loadEnvDefaults(ctx context.Context) (EnvDefaults, error) {
	var d EnvDefaults
	if err := envconfig.Process(ctx, &d); err != nil {
		return EnvDefaults{}, err
	}
	return d, nil
}
