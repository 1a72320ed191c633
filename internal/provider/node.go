package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/mintwatch/mintwatch/internal/network"
)

// Node is a provider backed directly by a JSON-RPC node plus an optional
// local signer. It implements the same protocol a browser wallet would,
// including the wallet_* chain management methods and change events, so
// the session layer cannot tell the difference.
type Node struct {
	mu        sync.Mutex
	endpoints map[uint64]string // chain id -> RPC URL
	chainID   uint64
	client    *gethrpc.Client
	signer    Signer
	unlocked  bool // accounts exposed after eth_requestAccounts

	subMu       sync.Mutex
	nextSubID   int
	accountSubs map[int]func([]string)
	chainSubs   map[int]func(uint64)

	log *zap.Logger
}

var _ Provider = (*Node)(nil)

// NewNode creates a node-backed provider. All profiles become known
// chains; active selects the initial one. signer may be nil for a
// read-only provider.
func NewNode(profiles []network.Profile, active network.Profile, signer Signer, log *zap.Logger) *Node {
	endpoints := make(map[uint64]string, len(profiles))
	for _, p := range profiles {
		endpoints[p.ChainID] = p.RPCURL
	}
	endpoints[active.ChainID] = active.RPCURL

	return &Node{
		endpoints:   endpoints,
		chainID:     active.ChainID,
		signer:      signer,
		accountSubs: make(map[int]func([]string)),
		chainSubs:   make(map[int]func(uint64)),
		log:         log,
	}
}

// Request dispatches a provider method. Wallet management methods are
// handled locally; everything else is proxied to the active node.
func (n *Node) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodRequestAccounts:
		return n.requestAccounts()
	case MethodAccounts:
		return n.accountsJSON(), nil
	case MethodChainID:
		n.mu.Lock()
		id := n.chainID
		n.mu.Unlock()
		return jsonString(hexutil.EncodeUint64(id)), nil
	case MethodSwitchChain:
		return n.switchChain(params)
	case MethodAddChain:
		return n.addChain(params)
	case MethodSendTransaction:
		return n.sendTransaction(ctx, params)
	default:
		var result json.RawMessage
		if err := n.call(ctx, &result, method, params...); err != nil {
			return nil, err
		}
		return result, nil
	}
}

// OnAccountsChanged registers an account change handler.
func (n *Node) OnAccountsChanged(fn func(accounts []string)) (cancel func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	id := n.nextSubID
	n.nextSubID++
	n.accountSubs[id] = fn
	return func() {
		n.subMu.Lock()
		defer n.subMu.Unlock()
		delete(n.accountSubs, id)
	}
}

// OnChainChanged registers a chain change handler.
func (n *Node) OnChainChanged(fn func(chainID uint64)) (cancel func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	id := n.nextSubID
	n.nextSubID++
	n.chainSubs[id] = fn
	return func() {
		n.subMu.Lock()
		defer n.subMu.Unlock()
		delete(n.chainSubs, id)
	}
}

// Close releases the RPC connection.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		n.client.Close()
		n.client = nil
	}
}

func (n *Node) requestAccounts() (json.RawMessage, error) {
	n.mu.Lock()
	n.unlocked = true
	n.mu.Unlock()

	accounts := n.accountsJSON()

	n.subMu.Lock()
	subs := make([]func([]string), 0, len(n.accountSubs))
	for _, fn := range n.accountSubs {
		subs = append(subs, fn)
	}
	n.subMu.Unlock()

	list := n.accountList()
	for _, fn := range subs {
		go fn(list)
	}

	return accounts, nil
}

func (n *Node) accountList() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.unlocked || n.signer == nil {
		return []string{}
	}

	addrs := n.signer.Accounts()
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Hex())
	}
	return out
}

func (n *Node) accountsJSON() json.RawMessage {
	data, _ := json.Marshal(n.accountList())
	return data
}

func (n *Node) switchChain(params []any) (json.RawMessage, error) {
	var p SwitchChainParams
	if err := decodeParam(params, &p); err != nil {
		return nil, err
	}

	target, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return nil, &RPCError{Code: CodeUserRejected, Message: fmt.Sprintf("invalid chain id %q", p.ChainID)}
	}

	n.mu.Lock()
	if _, known := n.endpoints[target]; !known {
		n.mu.Unlock()
		return nil, &RPCError{
			Code:    CodeUnrecognizedChain,
			Message: fmt.Sprintf("unrecognized chain id %d", target),
		}
	}

	if n.chainID != target {
		n.chainID = target
		if n.client != nil {
			n.client.Close()
			n.client = nil
		}
	}
	n.mu.Unlock()

	n.log.Debug("provider switched chain", zap.Uint64("chain_id", target))
	n.emitChainChanged(target)
	return json.RawMessage("null"), nil
}

func (n *Node) addChain(params []any) (json.RawMessage, error) {
	var p AddChainParams
	if err := decodeParam(params, &p); err != nil {
		return nil, err
	}

	id, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return nil, &RPCError{Code: CodeUserRejected, Message: fmt.Sprintf("invalid chain id %q", p.ChainID)}
	}
	if len(p.RPCURLs) == 0 {
		return nil, &RPCError{Code: CodeUserRejected, Message: "no rpc urls provided"}
	}

	n.mu.Lock()
	n.endpoints[id] = p.RPCURLs[0]
	n.mu.Unlock()

	n.log.Debug("provider added chain",
		zap.Uint64("chain_id", id),
		zap.String("name", p.ChainName))
	return json.RawMessage("null"), nil
}

func (n *Node) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	n.mu.Lock()
	signer := n.signer
	unlocked := n.unlocked
	chainID := n.chainID
	n.mu.Unlock()

	if signer == nil || !unlocked {
		return nil, &RPCError{Code: CodeUserRejected, Message: "no account available for signing"}
	}

	var p TxParams
	if err := decodeParam(params, &p); err != nil {
		return nil, err
	}

	from := common.HexToAddress(p.From)
	if !n.holdsAccount(from) {
		return nil, &RPCError{Code: CodeUserRejected, Message: fmt.Sprintf("unknown sender %s", p.From)}
	}
	to := common.HexToAddress(p.To)

	value := new(big.Int)
	if p.Value != "" {
		v, err := hexutil.DecodeBig(p.Value)
		if err != nil {
			return nil, &RPCError{Code: CodeUserRejected, Message: fmt.Sprintf("invalid value %q", p.Value)}
		}
		value = v
	}

	var data []byte
	if p.Data != "" {
		d, err := hexutil.Decode(p.Data)
		if err != nil {
			return nil, &RPCError{Code: CodeUserRejected, Message: "invalid call data"}
		}
		data = d
	}

	var nonceHex string
	if err := n.call(ctx, &nonceHex, "eth_getTransactionCount", p.From, "pending"); err != nil {
		return nil, err
	}
	nonce, err := hexutil.DecodeUint64(nonceHex)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}

	var gasPriceHex string
	if err := n.call(ctx, &gasPriceHex, "eth_gasPrice"); err != nil {
		return nil, err
	}
	gasPrice, err := hexutil.DecodeBig(gasPriceHex)
	if err != nil {
		return nil, fmt.Errorf("decoding gas price: %w", err)
	}

	gas := uint64(0)
	if p.Gas != "" {
		gas, err = hexutil.DecodeUint64(p.Gas)
		if err != nil {
			return nil, &RPCError{Code: CodeUserRejected, Message: fmt.Sprintf("invalid gas %q", p.Gas)}
		}
	} else {
		var gasHex string
		call := CallParams{From: p.From, To: p.To, Value: p.Value, Data: p.Data}
		if err := n.call(ctx, &gasHex, MethodEstimateGas, call); err != nil {
			return nil, err
		}
		gas, err = hexutil.DecodeUint64(gasHex)
		if err != nil {
			return nil, fmt.Errorf("decoding gas estimate: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := signer.SignTx(new(big.Int).SetUint64(chainID), from, tx)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	var hash string
	if err := n.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return nil, err
	}

	n.log.Debug("transaction submitted",
		zap.String("hash", hash),
		zap.String("to", p.To))
	return jsonString(hash), nil
}

func (n *Node) holdsAccount(addr common.Address) bool {
	for _, a := range n.signer.Accounts() {
		if a == addr {
			return true
		}
	}
	return false
}

func (n *Node) emitChainChanged(chainID uint64) {
	n.subMu.Lock()
	subs := make([]func(uint64), 0, len(n.chainSubs))
	for _, fn := range n.chainSubs {
		subs = append(subs, fn)
	}
	n.subMu.Unlock()

	for _, fn := range subs {
		go fn(chainID)
	}
}

// call proxies to the active node, establishing the connection lazily so
// a failed dial can be retried on the next request.
func (n *Node) call(ctx context.Context, result any, method string, params ...any) error {
	client, err := n.connect(ctx)
	if err != nil {
		return err
	}

	if err := client.CallContext(ctx, result, method, params...); err != nil {
		return translateRPCError(err)
	}
	return nil
}

func (n *Node) connect(ctx context.Context) (*gethrpc.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.client != nil {
		return n.client, nil
	}

	url, ok := n.endpoints[n.chainID]
	if !ok {
		return nil, fmt.Errorf("no endpoint for chain id %d", n.chainID)
	}

	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	n.client = client
	return client, nil
}

// translateRPCError converts node errors into the provider error shape
// so callers classify failures the same way for any provider.
func translateRPCError(err error) error {
	re := &RPCError{Code: -1, Message: err.Error()}

	var codeErr gethrpc.Error
	if errors.As(err, &codeErr) {
		re.Code = codeErr.ErrorCode()
	}

	var dataErr gethrpc.DataError
	if errors.As(err, &dataErr) {
		if s, isStr := dataErr.ErrorData().(string); isStr {
			re.Data = s
		}
	}

	return re
}

func decodeParam(params []any, out any) error {
	if len(params) == 0 {
		return &RPCError{Code: CodeUserRejected, Message: "missing parameter"}
	}
	data, err := json.Marshal(params[0])
	if err != nil {
		return &RPCError{Code: CodeUserRejected, Message: "invalid parameter"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RPCError{Code: CodeUserRejected, Message: "invalid parameter"}
	}
	return nil
}

func jsonString(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
