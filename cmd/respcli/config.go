package main

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// config holds respcli's connection defaults, overridable by flags on each
// invocation. Environment variables let it run unattended in scripts and
// CI without a flag on every call.
type config struct {
	Addr    string        `env:"WIREKV_ADDR,default=127.0.0.1:6379"`
	Pass    string        `env:"WIREKV_PASS"`
	DB      int           `env:"WIREKV_DB,default=0"`
	Timeout time.Duration `env:"WIREKV_TIMEOUT,default=5s"`
}

func loadConfig(ctx context.Context) (*config, error) {
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
