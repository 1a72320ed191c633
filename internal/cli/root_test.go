package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintwatch/mintwatch/internal/config"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestNetworksCommand(t *testing.T) {
	out, err := runCommand(t, "networks")
	require.NoError(t, err)

	assert.Contains(t, out, "localhost")
	assert.Contains(t, out, "sepolia")
	assert.Contains(t, out, "mainnet")
	assert.Contains(t, out, "chain 31337")
	// Default network is marked.
	assert.Contains(t, out, "* sepolia")
}

func TestNetworksCommandHonorsNetworkFlag(t *testing.T) {
	out, err := runCommand(t, "networks", "--network", "localhost")
	require.NoError(t, err)
	assert.Contains(t, out, "* localhost")

	networkFlag = "" // reset for other tests
}

func TestUnknownNetworkSuggests(t *testing.T) {
	_, err := runCommand(t, "networks", "--network", "sepolai")
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrUnknownNetwork))

	networkFlag = ""
}

func TestCatalogCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)

	cfgFile := config.Defaults()
	cfgFile.Catalog = []config.CatalogEntry{
		{
			ID:              "genesis",
			Name:            "Genesis Boxes",
			Network:         "sepolia",
			ContractAddress: "0x1111111111111111111111111111111111111111",
			Featured:        true,
		},
		{
			ID:      "local-test",
			Name:    "Local Test Boxes",
			Network: "localhost",
		},
	}
	require.NoError(t, config.Save(cfgFile, config.Path(home)))

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"catalog"})
	require.NoError(t, rootCmd.Execute())

	// The sepolia entry is shown with its featured marker; the localhost
	// entry is off-network and has no resolvable address.
	assert.Contains(t, buf.String(), "* genesis")
	assert.Contains(t, buf.String(), "Genesis Boxes")
	assert.NotContains(t, buf.String(), "local-test")
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{
			name: "all fields populated",
			info: BuildInfo{Version: "v1.2.3", Commit: "abc1234", Date: "2026-01-15"},
			want: "v1.2.3 (commit: abc1234, built: 2026-01-15)",
		},
		{
			name: "all fields empty",
			info: BuildInfo{},
			want: "dev (commit: unknown, built: unknown)",
		},
		{
			name: "only commit set",
			info: BuildInfo{Commit: "def5678"},
			want: "dev (commit: def5678, built: unknown)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatVersion(tc.info))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	buildInfo = BuildInfo{Version: "v0.1.0", Commit: "abc", Date: "2026-08-29"}
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mintwatch v0.1.0 (commit: abc, built: 2026-08-29)")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, mwerr.ExitChain, ExitCode(mwerr.ErrPurchaseReverted))
	assert.Equal(t, mwerr.ExitProvider, ExitCode(mwerr.ErrUserRejected))
	assert.Equal(t, mwerr.ExitGeneral, ExitCode(errors.New("boom")))
}

func TestPrintErrorShowsSuggestion(t *testing.T) {
	buf := &bytes.Buffer{}
	printError(buf, mwerr.ErrKeystoreNotFound)

	assert.Contains(t, buf.String(), "keystore file not found")
	assert.Contains(t, buf.String(), "Hint: run wallet init")
}
