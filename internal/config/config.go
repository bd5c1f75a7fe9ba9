// Package config exposes strongly typed sweeper configuration loaded from TOML or YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stakesweep-go/internal/amount"
)

// App captures process-wide runtime settings such as name, metrics and logging.
type App struct {
	Name        string `yaml:"name" toml:"name"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogFormat   string `yaml:"log_format" toml:"log_format"` // json|console
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
}

// Target is one owner whose stake is withdrawn and forwarded every pass.
type Target struct {
	OwnerPubkey        string          `yaml:"owner_pubkey" toml:"owner_pubkey"`
	OwnerSecret        string          `yaml:"owner_secret" toml:"owner_secret"`
	StakeReceiptPubkey string          `yaml:"stake_receipt_pubkey" toml:"stake_receipt_pubkey"`
	Amount             amount.Quantity `yaml:"amount" toml:"amount"`
}

// Loop controls pacing of the sweep.
type Loop struct {
	IntervalMs int `yaml:"interval_ms" toml:"interval_ms"`
	MaxPasses  int `yaml:"max_passes" toml:"max_passes"` // 0 runs until interrupted
}

// Interval returns the pause between passes; zero means the runner default.
func (l Loop) Interval() time.Duration {
	return time.Duration(l.IntervalMs) * time.Millisecond
}

// Risk encodes guard-rails on how much a single target may forward.
type Risk struct {
	MaxAmountPerTarget amount.Quantity `yaml:"max_amount_per_target" toml:"max_amount_per_target"`
}

// Report configures the optional JSONL outcome log.
type Report struct {
	Path string `yaml:"path" toml:"path"`
}

// Config collects every configuration leaf. Endpoint, forwarding and identity keys sit at
// the top level; everything else is grouped by concern.
type Config struct {
	RPCURL            string   `yaml:"rpc_url" toml:"rpc_url"`
	ForwardDestPubkey string   `yaml:"forward_dest_pubkey" toml:"forward_dest_pubkey"`
	FeePayerPubkey    string   `yaml:"fee_payer_pubkey" toml:"fee_payer_pubkey"`
	FeePayerSecret    string   `yaml:"fee_payer_secret" toml:"fee_payer_secret"`
	Targets           []Target `yaml:"targets" toml:"targets"`

	App      App      `yaml:"app" toml:"app"`
	Delivery Delivery `yaml:"delivery" toml:"delivery"`
	Loop     Loop     `yaml:"loop" toml:"loop"`
	Risk     Risk     `yaml:"risk" toml:"risk"`
	Report   Report   `yaml:"report" toml:"report"`
	Program  Program  `yaml:"program" toml:"program"`
}

// Environment overrides applied by Load.
const (
	EnvRPCURL      = "SWEEPER_RPC_URL"
	EnvLogLevel    = "SWEEPER_LOG_LEVEL"
	EnvMetricsAddr = "SWEEPER_METRICS_ADDR"
)

// Load reads a TOML (.toml) or YAML file, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides endpoint and observability settings from the environment, loading
// a .env file first when present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load() // best-effort
	c.RPCURL = getEnv(EnvRPCURL, c.RPCURL)
	c.App.LogLevel = getEnv(EnvLogLevel, c.App.LogLevel)
	c.App.MetricsAddr = getEnv(EnvMetricsAddr, c.App.MetricsAddr)
}

// Validate checks that every required field is present. Key material is checked later,
// when identities are derived.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.RPCURL) == "" {
		errs = append(errs, errors.New("rpc_url is required"))
	}
	if strings.TrimSpace(c.ForwardDestPubkey) == "" {
		errs = append(errs, errors.New("forward_dest_pubkey is required"))
	}
	if strings.TrimSpace(c.FeePayerPubkey) == "" || strings.TrimSpace(c.FeePayerSecret) == "" {
		errs = append(errs, errors.New("fee_payer_pubkey and fee_payer_secret are required"))
	}
	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("at least one target is required"))
	}
	for i, t := range c.Targets {
		if strings.TrimSpace(t.OwnerPubkey) == "" || strings.TrimSpace(t.OwnerSecret) == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: owner_pubkey and owner_secret are required", i))
		}
		if strings.TrimSpace(t.StakeReceiptPubkey) == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: stake_receipt_pubkey is required", i))
		}
		if t.Amount.IsNegative() {
			errs = append(errs, fmt.Errorf("targets[%d]: %w", i, amount.ErrNegative))
		}
	}
	if c.Loop.IntervalMs < 0 || c.Loop.MaxPasses < 0 {
		errs = append(errs, errors.New("loop.interval_ms and loop.max_passes must not be negative"))
	}
	if err := c.Delivery.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
