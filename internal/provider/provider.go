// Package provider defines the wallet provider protocol consumed by the
// session layer: a request/response surface plus asynchronous account and
// chain change notifications. The interface mirrors the injected-provider
// convention browser wallets implement, so the rest of the system is
// agnostic to whether the provider is a real wallet bridge, the local
// node-backed implementation, or a test fake.
package provider

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Provider request methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodCall            = "eth_call"
	MethodEstimateGas     = "eth_estimateGas"
	MethodSendTransaction = "eth_sendTransaction"
	MethodGetReceipt      = "eth_getTransactionReceipt"
)

// Provider is the wallet provider protocol. Request issues a JSON-RPC
// style call; the event registrations deliver provider-driven changes
// that can occur at any time.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// OnAccountsChanged registers a handler for account list changes.
	// An empty list means the wallet revoked access.
	OnAccountsChanged(fn func(accounts []string)) (cancel func())

	// OnChainChanged registers a handler for active chain changes.
	OnChainChanged(fn func(chainID uint64)) (cancel func())
}

// Signer provides local transaction signing for node-backed providers.
type Signer interface {
	Accounts() []common.Address
	SignTx(chainID *big.Int, from common.Address, tx *types.Transaction) (*types.Transaction, error)
}

// NativeCurrency mirrors the add-chain currency metadata.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// SwitchChainParams is the wallet_switchEthereumChain parameter object.
type SwitchChainParams struct {
	ChainID string `json:"chainId"` // hex-encoded
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"` // hex-encoded
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// CallParams is the eth_call / eth_estimateGas transaction object.
type CallParams struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"` // hex-encoded wei
	Data  string `json:"data,omitempty"`  // hex-encoded call data
}

// TxParams is the eth_sendTransaction transaction object.
type TxParams struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"` // hex-encoded wei
	Data  string `json:"data,omitempty"`
	Gas   string `json:"gas,omitempty"`
}
