package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/mintwatch/mintwatch/internal/network"
	"github.com/mintwatch/mintwatch/internal/provider"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// Manager drives the wallet session state machine. All session mutation
// goes through it, either from explicit calls or from provider events.
type Manager struct {
	provider provider.Provider // nil when no wallet provider is present
	registry *network.Registry
	log      *zap.Logger

	mu          sync.Mutex
	sess        Session
	inflight    chan struct{} // non-nil while a connect is in flight
	inflightErr error

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(Session)

	cancels []func()
}

// NewManager creates the session manager and wires the provider event
// reactions. p may be nil; Connect then fails with ProviderUnavailable
// but read paths that do not need a session still work.
func NewManager(p provider.Provider, registry *network.Registry, log *zap.Logger) *Manager {
	m := &Manager{
		provider: p,
		registry: registry,
		log:      log,
		subs:     make(map[int]func(Session)),
	}

	if p != nil {
		m.cancels = append(m.cancels,
			p.OnAccountsChanged(m.handleAccountsChanged),
			p.OnChainChanged(m.handleChainChanged),
		)
	}

	return m
}

// Session returns the current session snapshot.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Provider returns the underlying wallet provider, or nil.
func (m *Manager) Provider() provider.Provider {
	return m.provider
}

// Subscribe registers a handler invoked after every session change.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// Close cancels the provider event registrations.
func (m *Manager) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
}

// Connect establishes the wallet session. Concurrent calls while a
// connect is already in flight are coalesced onto the same provider
// prompt and observe its result.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if m.provider == nil {
		return Session{}, mwerr.ErrProviderUnavailable
	}

	m.mu.Lock()
	if m.sess.State == Connected {
		s := m.sess
		m.mu.Unlock()
		return s, nil
	}
	if m.inflight != nil {
		ch := m.inflight
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return Session{}, ctx.Err()
		case <-ch:
		}
		m.mu.Lock()
		s, err := m.sess, m.inflightErr
		m.mu.Unlock()
		return s, err
	}

	ch := make(chan struct{})
	m.inflight = ch
	m.sess.State = Connecting
	m.mu.Unlock()

	err := m.doConnect(ctx)

	m.mu.Lock()
	if err != nil && m.sess.State == Connecting {
		m.sess.State = Disconnected
	}
	m.inflightErr = err
	m.inflight = nil
	close(ch)
	s := m.sess
	m.mu.Unlock()

	if err == nil {
		m.log.Info("wallet connected",
			zap.String("account", s.Account),
			zap.Uint64("chain_id", s.ChainID))
		m.notify(s)
	}
	return s, err
}

// Disconnect clears the active account and write capability. Wallet-side
// permissions are not revoked; the chain id is retained. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.sess.State == Disconnected && m.sess.Account == "" {
		m.mu.Unlock()
		return
	}
	m.sess.Account = ""
	m.sess.State = Disconnected
	s := m.sess
	m.mu.Unlock()

	m.log.Info("wallet disconnected")
	m.notify(s)
}

// SwitchNetwork runs the network-switch protocol toward the named
// network. The resulting session update arrives via the chainChanged
// event reaction.
func (m *Manager) SwitchNetwork(ctx context.Context, name string) error {
	if m.provider == nil {
		return mwerr.ErrProviderUnavailable
	}

	profile, err := m.registry.Lookup(name)
	if err != nil {
		return err
	}
	return m.switchProtocol(ctx, profile)
}

func (m *Manager) doConnect(ctx context.Context) error {
	chainID, err := m.readChainID(ctx)
	if err != nil {
		return mwerr.Wrap(err, "reading chain id")
	}

	// Unsupported chain: run the switch protocol toward the default
	// network before asking for accounts.
	if _, supported := m.registry.ByChainID(chainID); !supported {
		m.log.Warn("active chain is unsupported, switching to default",
			zap.Uint64("chain_id", chainID),
			zap.String("default", m.registry.Default().NetworkID))

		if err := m.switchProtocol(ctx, m.registry.Default()); err != nil {
			return err
		}
		chainID, err = m.readChainID(ctx)
		if err != nil {
			return mwerr.Wrap(err, "reading chain id after switch")
		}
	}

	raw, err := m.provider.Request(ctx, provider.MethodRequestAccounts)
	if err != nil {
		if provider.IsUserRejected(err) {
			return mwerr.Wrap(mwerr.ErrUserRejected, "requesting accounts")
		}
		return mwerr.Wrap(err, "requesting accounts")
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return mwerr.Wrap(err, "decoding accounts")
	}

	account := ""
	if len(accounts) > 0 {
		account = accounts[0]
	}

	_, supported := m.registry.ByChainID(chainID)

	m.mu.Lock()
	m.sess = Session{
		Account:         account,
		ChainID:         chainID,
		State:           Connected,
		NetworkMismatch: !supported,
	}
	m.mu.Unlock()
	return nil
}

// switchProtocol requests a chain switch; when the provider does not
// know the chain (code 4902) it falls back to adding the chain from the
// profile metadata, then retries the switch once.
func (m *Manager) switchProtocol(ctx context.Context, profile network.Profile) error {
	m.setSwitching(true)
	defer m.setSwitching(false)

	params := provider.SwitchChainParams{ChainID: hexutil.EncodeUint64(profile.ChainID)}

	_, err := m.provider.Request(ctx, provider.MethodSwitchChain, params)
	if err == nil {
		return nil
	}

	if provider.IsUserRejected(err) {
		return mwerr.Wrap(mwerr.ErrUserRejected, "switching network")
	}

	if !provider.IsUnrecognizedChain(err) {
		return mwerr.WithDetails(
			mwerr.Wrap(mwerr.ErrNetworkSwitchFailed, "%v", err),
			map[string]string{"network": profile.NetworkID},
		)
	}

	// 4902: the provider does not know the chain. Add it, then retry.
	add := provider.AddChainParams{
		ChainID:   hexutil.EncodeUint64(profile.ChainID),
		ChainName: profile.DisplayName,
		NativeCurrency: provider.NativeCurrency{
			Name:     profile.NativeCurrency.Name,
			Symbol:   profile.NativeCurrency.Symbol,
			Decimals: profile.NativeCurrency.Decimals,
		},
		RPCURLs: []string{profile.RPCURL},
	}
	if profile.BlockExplorerURL != "" {
		add.BlockExplorerURLs = []string{profile.BlockExplorerURL}
	}

	if _, err := m.provider.Request(ctx, provider.MethodAddChain, add); err != nil {
		return mwerr.WithDetails(
			mwerr.Wrap(mwerr.ErrNetworkSwitchFailed, "adding chain: %v", err),
			map[string]string{"network": profile.NetworkID},
		)
	}
	if _, err := m.provider.Request(ctx, provider.MethodSwitchChain, params); err != nil {
		return mwerr.WithDetails(
			mwerr.Wrap(mwerr.ErrNetworkSwitchFailed, "retrying switch: %v", err),
			map[string]string{"network": profile.NetworkID},
		)
	}
	return nil
}

func (m *Manager) readChainID(ctx context.Context) (uint64, error) {
	raw, err := m.provider.Request(ctx, provider.MethodChainID)
	if err != nil {
		return 0, err
	}

	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, err
	}
	return hexutil.DecodeUint64(hex)
}

// setSwitching flips the in-flight substate and notifies on both
// edges, so subscribers observe the switch completing, not just
// starting.
func (m *Manager) setSwitching(v bool) {
	m.mu.Lock()
	m.sess.Switching = v
	s := m.sess
	m.mu.Unlock()
	m.notify(s)
}

// handleAccountsChanged replaces the active account, or clears it when
// the wallet revoked access. May arrive at any time.
func (m *Manager) handleAccountsChanged(accounts []string) {
	m.mu.Lock()
	if len(accounts) == 0 {
		m.sess.Account = ""
	} else {
		m.sess.Account = accounts[0]
	}
	s := m.sess
	m.mu.Unlock()

	m.log.Debug("accounts changed", zap.String("account", s.Account))
	m.notify(s)
}

// handleChainChanged updates the chain id and re-evaluates the mismatch
// substate. The account and write capability carry over to the new
// chain when present.
func (m *Manager) handleChainChanged(chainID uint64) {
	_, supported := m.registry.ByChainID(chainID)

	m.mu.Lock()
	m.sess.ChainID = chainID
	m.sess.NetworkMismatch = !supported
	s := m.sess
	m.mu.Unlock()

	m.log.Debug("chain changed",
		zap.Uint64("chain_id", chainID),
		zap.Bool("supported", supported))
	m.notify(s)
}

func (m *Manager) notify(s Session) {
	m.subMu.Lock()
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
