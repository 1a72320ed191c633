package config

import (
	"os"
	"strings"
)

// Environment variable names.
const (
	EnvHome           = "MINTWATCH_HOME"
	EnvDefaultNetwork = "MINTWATCH_DEFAULT_NETWORK"
	EnvRPCURL         = "MINTWATCH_RPC_URL"
	EnvContractAddr   = "MINTWATCH_CONTRACT_ADDRESS"
	EnvLogLevel       = "MINTWATCH_LOG_LEVEL"
)

// ApplyEnvironment applies environment variable overrides to the
// configuration. The RPC and contract overrides apply to the default
// network, matching the original deployment convention.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvDefaultNetwork); v != "" {
		cfg.DefaultNetwork = strings.ToLower(v)
	}

	if v := os.Getenv(EnvRPCURL); v != "" {
		if nc, ok := cfg.Networks[cfg.DefaultNetwork]; ok {
			nc.RPC = v
			cfg.Networks[cfg.DefaultNetwork] = nc
		}
	}

	if v := os.Getenv(EnvContractAddr); v != "" {
		if nc, ok := cfg.Networks[cfg.DefaultNetwork]; ok {
			nc.ContractAddress = v
			cfg.Networks[cfg.DefaultNetwork] = nc
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
