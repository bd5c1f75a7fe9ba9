// Package config also contains the RPC delivery and program override surfaces.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Delivery mirrors the RPC sendTransaction options. Unset fields keep node defaults.
type Delivery struct {
	SkipPreflight       bool    `yaml:"skip_preflight" toml:"skip_preflight"`
	PreflightCommitment string  `yaml:"preflight_commitment" toml:"preflight_commitment"` // processed|confirmed|finalized
	BlockhashCommitment string  `yaml:"blockhash_commitment" toml:"blockhash_commitment"`
	MaxRetries          *uint   `yaml:"max_retries" toml:"max_retries"`
	MinContextSlot      *uint64 `yaml:"min_context_slot" toml:"min_context_slot"`
	TimeoutMs           int     `yaml:"timeout_ms" toml:"timeout_ms"`
}

// Timeout returns the per-call RPC timeout, zero when unset.
func (d Delivery) Timeout() time.Duration {
	if d.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// Validate rejects unknown commitment names.
func (d Delivery) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"delivery.preflight_commitment", d.PreflightCommitment},
		{"delivery.blockhash_commitment", d.BlockhashCommitment},
	}
	for _, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f.value)) {
		case "", "processed", "confirmed", "finalized":
		default:
			return fmt.Errorf("%s: unknown commitment %q", f.name, f.value)
		}
	}
	return nil
}

// Program overrides the swept mint. Empty fields keep the built-in BONK constants.
type Program struct {
	Mint     string `yaml:"mint" toml:"mint"`
	Decimals *uint8 `yaml:"decimals" toml:"decimals"`
}
