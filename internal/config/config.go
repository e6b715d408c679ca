// Package config holds operator-level configuration for an attestor process.
//
// Set via env vars (ATTESTOR_*) or a config file (attestor.config.yaml).
// The two business constants inherited from the original impact model —
// the revenue scale factor and the synthesized execution duration — are
// deliberately plain config values with the historical defaults (1000x,
// 1000 ms) rather than hardcoded numbers, so operators can tune them
// without a rebuild.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/attestor-io/attestor/internal/cryptoutil"
)

// Viper keys. Each maps to an env var with the ATTESTOR_ prefix
// (e.g. "signing_key" → ATTESTOR_SIGNING_KEY) and to a YAML field in
// attestor.config.yaml.
const (
	KeyDataDir             = "data_dir"
	KeySigningKey          = "signing_key"
	KeyRevenueScaleFactor  = "revenue_scale_factor"
	KeyDefaultDurationMS   = "default_duration_ms"
	KeyDuplicateSlotPolicy = "duplicate_slot_policy"
	KeyRetentionDays       = "retention_days"
	KeyRegimeRegistry      = "regime_registry"
)

// Defaults that do not involve crypto material. The signing key has no
// baked-in default — when unset we derive a deterministic per-machine
// fallback and warn loudly.
const (
	DefaultRevenueScaleFactor  = 1000.0
	DefaultDurationMS          = 1000
	DefaultDuplicateSlotPolicy = "error"
	DefaultRetentionDays       = 90
)

// Config holds resolved operator-level configuration for an attestor process.
type Config struct {
	DataDir             string  // Base directory for all state (~/.attestor)
	SigningKey          string  // HMAC-SHA256 key for receipt signing (>=32 bytes)
	RevenueScaleFactor  float64 // Multiplier from business-value score to revenue impact
	DefaultDurationMS   int64   // Synthesized execution duration when the caller supplies none
	DuplicateSlotPolicy string  // "error" or "ignore" for re-registered extension slots
	RetentionDays       int     // Receipt retention horizon for the sweeper
	RegimeRegistry      string  // Optional YAML file extending the compliance-regime alias table

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the receipt signing key was
// derived rather than set explicitly. Commands should warn when so.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// ReceiptsDBPath returns the full path to the receipts SQLite database.
func (c *Config) ReceiptsDBPath() string {
	return filepath.Join(c.DataDir, "receipts.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKey logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKey() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default ATTESTOR_SIGNING_KEY — set via env var or config file for production")
	}
}

func init() {
	viper.SetEnvPrefix("ATTESTOR")
	viper.AutomaticEnv()
	viper.SetDefault(KeyRevenueScaleFactor, DefaultRevenueScaleFactor)
	viper.SetDefault(KeyDefaultDurationMS, DefaultDurationMS)
	viper.SetDefault(KeyDuplicateSlotPolicy, DefaultDuplicateSlotPolicy)
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:             resolveDataDir(),
		SigningKey:          viper.GetString(KeySigningKey),
		RevenueScaleFactor:  viper.GetFloat64(KeyRevenueScaleFactor),
		DefaultDurationMS:   viper.GetInt64(KeyDefaultDurationMS),
		DuplicateSlotPolicy: viper.GetString(KeyDuplicateSlotPolicy),
		RetentionDays:       viper.GetInt(KeyRetentionDays),
		RegimeRegistry:      viper.GetString(KeyRegimeRegistry),
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "receipt-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".attestor"
	}
	return filepath.Join(home, ".attestor")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. This is NOT cryptographically strong — it
// exists solely so attestor works out of the box while still signing
// receipts with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("attestor:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	if c.RevenueScaleFactor < 0 {
		return fmt.Errorf("revenue_scale_factor must be non-negative (got %v)", c.RevenueScaleFactor)
	}
	if c.DefaultDurationMS <= 0 {
		return fmt.Errorf("default_duration_ms must be positive (got %d)", c.DefaultDurationMS)
	}
	switch c.DuplicateSlotPolicy {
	case "error", "ignore":
	default:
		return fmt.Errorf("duplicate_slot_policy must be %q or %q (got %q)", "error", "ignore", c.DuplicateSlotPolicy)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive (got %d)", c.RetentionDays)
	}
	return nil
}

// validateSigningKey accepts either >=32 raw bytes or >=64 even-length hex
// characters decoding to at least 32 bytes (HMAC-SHA256 key strength).
func validateSigningKey(key string) error {
	if _, err := cryptoutil.ResolveKey(key, 32); err != nil {
		return fmt.Errorf("signing_key: %w; set ATTESTOR_SIGNING_KEY", err)
	}
	return nil
}
