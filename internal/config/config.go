// Package config provides configuration management for Mintwatch.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mintwatch/mintwatch/internal/fileutil"
	"github.com/mintwatch/mintwatch/internal/network"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version        int                      `yaml:"version"`
	DefaultNetwork string                   `yaml:"default_network"`
	Networks       map[string]NetworkConfig `yaml:"networks"`
	Catalog        []CatalogEntry           `yaml:"catalog,omitempty"`
	Purchase       PurchaseConfig           `yaml:"purchase"`
	Scan           ScanConfig               `yaml:"scan"`
	Wallet         WalletConfig             `yaml:"wallet"`
	Logging        LoggingConfig            `yaml:"logging"`
}

// NetworkConfig defines one supported network and its optional contract
// address override.
type NetworkConfig struct {
	ChainID         uint64           `yaml:"chain_id"`
	DisplayName     string           `yaml:"display_name"`
	RPC             string           `yaml:"rpc"`
	BlockExplorer   string           `yaml:"block_explorer,omitempty"`
	NativeCurrency  network.Currency `yaml:"native_currency"`
	ContractAddress string           `yaml:"contract_address,omitempty"`
}

// CatalogEntry describes one purchasable collection shown by the CLI.
// Entries without an explicit address fall back to the per-network
// contract address override.
type CatalogEntry struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Description     string `yaml:"description,omitempty"`
	Network         string `yaml:"network"`
	ContractAddress string `yaml:"contract_address,omitempty"`
	Featured        bool   `yaml:"featured,omitempty"`
}

// PurchaseConfig tunes post-purchase resynchronization.
type PurchaseConfig struct {
	// ResyncDelaysMS are the delays, in milliseconds, of the staggered
	// refresh passes scheduled after a confirmed purchase.
	ResyncDelaysMS []int `yaml:"resync_delays_ms"`

	// ReceiptPollMS is the polling interval while waiting for inclusion.
	ReceiptPollMS int `yaml:"receipt_poll_ms"`

	// ReceiptTimeoutS bounds the inclusion wait.
	ReceiptTimeoutS int `yaml:"receipt_timeout_s"`
}

// ResyncDelays returns the configured delays as durations.
func (p PurchaseConfig) ResyncDelays() []time.Duration {
	out := make([]time.Duration, 0, len(p.ResyncDelaysMS))
	for _, ms := range p.ResyncDelaysMS {
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}

// ScanConfig bounds the RPC pressure of the ownership scan.
type ScanConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// WalletConfig defines the local dev signer settings.
type WalletConfig struct {
	KeystoreFile string `yaml:"keystore_file"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mwerr.WithDetails(mwerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, mwerr.Wrap(mwerr.ErrConfigInvalid, "parsing %s", path)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the config file path under the given home directory.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default mintwatch home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mintwatch"
	}
	return filepath.Join(home, ".mintwatch")
}

// Profiles converts the configured networks into registry profiles.
func (c *Config) Profiles() []network.Profile {
	out := make([]network.Profile, 0, len(c.Networks))
	for name, nc := range c.Networks {
		out = append(out, network.Profile{
			NetworkID:        name,
			ChainID:          nc.ChainID,
			DisplayName:      nc.DisplayName,
			RPCURL:           nc.RPC,
			NativeCurrency:   nc.NativeCurrency,
			BlockExplorerURL: nc.BlockExplorer,
		})
	}
	return out
}

// Registry builds the network registry from the configuration.
func (c *Config) Registry() (*network.Registry, error) {
	return network.NewRegistry(c.Profiles(), c.DefaultNetwork)
}

// ContractOverrides returns the per-network contract address overrides,
// keyed by network name. Networks without an address are omitted.
func (c *Config) ContractOverrides() map[string]string {
	out := make(map[string]string)
	for name, nc := range c.Networks {
		if nc.ContractAddress != "" {
			out[name] = nc.ContractAddress
		}
	}
	return out
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}
