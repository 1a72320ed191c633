package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "sepolia", cfg.DefaultNetwork)
	assert.Len(t, cfg.Networks, 3)
	assert.Equal(t, uint64(11155111), cfg.Networks["sepolia"].ChainID)
	assert.Equal(t, []int{2000, 4000, 6000}, cfg.Purchase.ResyncDelaysMS)

	// Defaults must always produce a valid registry.
	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, "sepolia", reg.Default().NetworkID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrConfigNotFound))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)

	cfg := Defaults()
	nc := cfg.Networks["sepolia"]
	nc.ContractAddress = "0x1111111111111111111111111111111111111111"
	cfg.Networks["sepolia"] = nc
	cfg.Purchase.ResyncDelaysMS = []int{500}

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111",
		loaded.Networks["sepolia"].ContractAddress)
	assert.Equal(t, []int{500}, loaded.Purchase.ResyncDelaysMS)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("networks: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrConfigInvalid))
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv(EnvDefaultNetwork, "localhost")
	t.Setenv(EnvRPCURL, "http://10.0.0.5:8545")
	t.Setenv(EnvContractAddr, "0x2222222222222222222222222222222222222222")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg := Defaults()
	ApplyEnvironment(cfg)

	assert.Equal(t, "localhost", cfg.DefaultNetwork)
	assert.Equal(t, "http://10.0.0.5:8545", cfg.Networks["localhost"].RPC)
	assert.Equal(t, "0x2222222222222222222222222222222222222222",
		cfg.Networks["localhost"].ContractAddress)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestContractOverrides(t *testing.T) {
	cfg := Defaults()
	nc := cfg.Networks["localhost"]
	nc.ContractAddress = "0xabc"
	cfg.Networks["localhost"] = nc

	overrides := cfg.ContractOverrides()
	assert.Equal(t, map[string]string{"localhost": "0xabc"}, overrides)
}
