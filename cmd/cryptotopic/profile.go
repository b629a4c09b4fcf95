package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/cryptotopic/client-go/ledger"
	"github.com/cryptotopic/client-go/ledger/badgerledger"
	"github.com/cryptotopic/client-go/ledger/memledger"
	"github.com/cryptotopic/client-go/ledger/redisledger"
)

// Ledger backends.
const (
	backendMemory = "memory"
	backendBadger = "badger"
	backendRedis  = "redis"
)

const (
	defaultBadgerPath = "cryptotopic-data"
	defaultRedisAddr  = "localhost:6379"
)

// Profile is the YAML configuration of the CLI.
type Profile struct {
	Ledger   LedgerProfile `yaml:"ledger"`
	Identity string        `yaml:"identity"`
	// PollInterval is the initial watch polling interval, e.g. "2s".
	PollInterval string `yaml:"pollInterval"`
}

// LedgerProfile selects and configures the ledger backend.
type LedgerProfile struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPrefix   string `yaml:"redisPrefix"`
}

// LoadProfile reads the profile at path. A missing file yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	var p Profile

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read profile: %w", err)
	default:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	}

	if p.Ledger.Backend == "" {
		p.Ledger.Backend = backendBadger
	}
	if p.Ledger.Path == "" {
		p.Ledger.Path = defaultBadgerPath
	}
	if p.Ledger.RedisAddr == "" {
		p.Ledger.RedisAddr = defaultRedisAddr
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	switch p.Ledger.Backend {
	case backendMemory, backendBadger, backendRedis:
	default:
		return fmt.Errorf("unknown ledger backend %q", p.Ledger.Backend)
	}
	if p.PollInterval != "" {
		if _, err := time.ParseDuration(p.PollInterval); err != nil {
			return fmt.Errorf("invalid pollInterval: %w", err)
		}
	}
	return nil
}

// pollInterval returns the configured polling interval, or zero for the
// client default.
func (p *Profile) pollInterval() time.Duration {
	d, _ := time.ParseDuration(p.PollInterval)
	return d
}

// openLedger connects to the backend named by the profile. The returned
// closer releases it.
func openLedger(ctx context.Context, p *Profile, log *logrus.Logger) (ledger.Ledger, io.Closer, error) {
	switch p.Ledger.Backend {
	case backendMemory:
		return memledger.New(memledger.WithLogger(log)), noopCloser{}, nil
	case backendBadger:
		l, err := badgerledger.New(badgerledger.Config{Path: p.Ledger.Path, Logger: log})
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	case backendRedis:
		l, err := redisledger.New(ctx, redisledger.Config{
			Addr:     p.Ledger.RedisAddr,
			Password: p.Ledger.RedisPassword,
			DB:       p.Ledger.RedisDB,
			Prefix:   p.Ledger.RedisPrefix,
			Logger:   log,
		})
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", p.Ledger.Backend)
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
