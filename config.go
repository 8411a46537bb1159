package main

import (
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/yumyai/swarmtable/pkg/pipeline"
)

const (
	envDir          = "SWARMTABLE_DIR"
	envMinAbundance = "SWARMTABLE_MIN_ABUNDANCE"
	envPrefix       = "SWARMTABLE_PREFIX"
	envLogLevel     = "SWARMTABLE_LOG_LEVEL"
	envDB           = "SWARMTABLE_DB"
	envAddr         = "SWARMTABLE_ADDR"

	defaultAddr     = "0.0.0.0:8080"
	defaultLogLevel = "info"
)

// Config holds every setting before flags are applied. Flags registered in
// the commands use these values as their defaults, so a flag given on the
// command line wins over the environment.
type Config struct {
	Pipeline pipeline.Config
	LogLevel string
	Addr     string
}

// configFromEnv reads SWARMTABLE_* variables through getenv on top of the
// built-in defaults.
func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Pipeline: pipeline.DefaultConfig(),
		LogLevel: defaultLogLevel,
		Addr:     defaultAddr,
	}

	if v := getenv(envDir); v != "" {
		cfg.Pipeline.Dir = v
	}
	if v := getenv(envMinAbundance); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return cfg, pkgerrors.Errorf("%s must be a positive integer, got %q", envMinAbundance, v)
		}
		cfg.Pipeline.MinAbundance = n
	}
	if v := getenv(envPrefix); v != "" {
		cfg.Pipeline.Prefix = v
	}
	if v := getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv(envDB); v != "" {
		cfg.Pipeline.DBPath = v
	}
	if v := getenv(envAddr); v != "" {
		cfg.Addr = v
	}

	return cfg, nil
}
