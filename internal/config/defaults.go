package config

import "github.com/mintwatch/mintwatch/internal/network"

// Default RPC endpoints. Public, no-API-key providers; override per
// deployment via config or environment.
const (
	DefaultSepoliaRPC = "https://ethereum-sepolia-rpc.publicnode.com"
	DefaultMainnetRPC = "https://ethereum-rpc.publicnode.com"
	DefaultLocalRPC   = "http://127.0.0.1:8545"
)

// DefaultResyncDelaysMS are the staggered post-purchase refresh delays.
// Chain reads shortly after inclusion can lag the confirmed state, so the
// refresh is repeated a few times instead of trusting the first pass.
//
//nolint:gochecknoglobals // Configuration default constant
var DefaultResyncDelaysMS = []int{2000, 4000, 6000}

// Defaults returns the default configuration.
func Defaults() *Config {
	ether := network.Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}

	return &Config{
		Version:        1,
		DefaultNetwork: "sepolia",
		Networks: map[string]NetworkConfig{
			"localhost": {
				ChainID:        31337,
				DisplayName:    "Localhost",
				RPC:            DefaultLocalRPC,
				NativeCurrency: ether,
			},
			"sepolia": {
				ChainID:        11155111,
				DisplayName:    "Sepolia",
				RPC:            DefaultSepoliaRPC,
				BlockExplorer:  "https://sepolia.etherscan.io",
				NativeCurrency: ether,
			},
			"mainnet": {
				ChainID:        1,
				DisplayName:    "Ethereum Mainnet",
				RPC:            DefaultMainnetRPC,
				BlockExplorer:  "https://etherscan.io",
				NativeCurrency: ether,
			},
		},
		Purchase: PurchaseConfig{
			ResyncDelaysMS:  DefaultResyncDelaysMS,
			ReceiptPollMS:   1000,
			ReceiptTimeoutS: 120,
		},
		Scan: ScanConfig{
			RatePerSecond: 20,
			Burst:         40,
		},
		Wallet: WalletConfig{
			KeystoreFile: "keystore.age",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
