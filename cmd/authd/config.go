package main

import (
	"errors"
	"time"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
	StateRedis      = "redis"
	StateMemory     = "memory"
)

var (
	ErrUnknownStorage    = errors.New("unknown AUTH_STORAGE driver")
	ErrUnknownStateStore = errors.New("unknown AUTH_STATE_STORE driver")
)

type appConfig struct {
	Env        string `env:"APP_ENV" envDefault:"development"`
	Storage    string `env:"AUTH_STORAGE" envDefault:"sqlite"`
	StateStore string `env:"AUTH_STATE_STORE" envDefault:"memory"`
	// Secret keys the session token and the verification token hashes.
	Secret string `env:"AUTH_SECRET,required"`

	JanitorInterval  time.Duration `env:"AUTH_JANITOR_INTERVAL" envDefault:"1h"`
	SweepInterval    time.Duration `env:"SIGNIN_THROTTLE_SWEEP_INTERVAL" envDefault:"5m"`
	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"5s"`
}
