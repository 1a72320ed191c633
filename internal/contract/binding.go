// Package contract resolves the blind-box contract address for the
// active chain and exposes read and write capabilities over it. A
// binding is a snapshot: session changes (chain or account) invalidate
// previously handed-out bindings, so holders re-resolve instead of
// writing through a stale capability.
package contract

import (
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mintwatch/mintwatch/internal/network"
	"github.com/mintwatch/mintwatch/internal/session"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// Binder resolves contract bindings against the live session. Address
// resolution order: explicit override, then the per-network configured
// address for the active chain, then unresolved.
type Binder struct {
	session  *session.Manager
	registry *network.Registry
	log      *zap.Logger

	abi         abi.ABI
	explicit    common.Address
	hasExplicit bool
	overrides   map[uint64]common.Address

	mu      sync.Mutex
	current *Binding

	cancel func()
}

// NewBinder builds a binder. overrides maps network names to contract
// addresses (from configuration); explicit, when non-empty, wins over
// every override.
func NewBinder(sm *session.Manager, registry *network.Registry, overrides map[string]string, explicit string, log *zap.Logger) (*Binder, error) {
	parsed, err := abi.JSON(strings.NewReader(BlindBoxABI))
	if err != nil {
		return nil, mwerr.Wrap(err, "parsing blind box ABI")
	}

	b := &Binder{
		session:   sm,
		registry:  registry,
		log:       log,
		abi:       parsed,
		overrides: make(map[uint64]common.Address, len(overrides)),
	}

	if explicit != "" {
		if !common.IsHexAddress(explicit) {
			return nil, mwerr.WithDetails(mwerr.ErrInvalidAddress, map[string]string{"address": explicit})
		}
		b.explicit = common.HexToAddress(explicit)
		b.hasExplicit = true
	}

	for name, addr := range overrides {
		profile, err := registry.Lookup(name)
		if err != nil {
			return nil, mwerr.Wrap(err, "contract override for unknown network %q", name)
		}
		if !common.IsHexAddress(addr) {
			return nil, mwerr.WithDetails(mwerr.ErrInvalidAddress,
				map[string]string{"network": name, "address": addr})
		}
		b.overrides[profile.ChainID] = common.HexToAddress(addr)
	}

	b.cancel = sm.Subscribe(b.onSessionChange)
	return b, nil
}

// Close detaches the binder from session notifications.
func (b *Binder) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Resolve returns a binding for the active chain. The binding is cached
// until the session changes. Fails with UnresolvedContract when no
// address is known for the chain.
func (b *Binder) Resolve() (*Binding, error) {
	sess := b.session.Session()

	addr, ok := b.addressFor(sess.ChainID)
	if !ok {
		return nil, mwerr.WithDetails(mwerr.ErrUnresolvedContract,
			map[string]string{"chain_id": strconv.FormatUint(sess.ChainID, 10)})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cur := b.current; cur != nil &&
		cur.addr == addr && cur.chainID == sess.ChainID && cur.account == sess.Account {
		return cur, nil
	}

	binding := newBinding(b.session, b.abi, addr, sess)
	if b.current != nil {
		b.current.valid.Store(false)
	}
	b.current = binding

	b.log.Debug("contract bound",
		zap.String("address", addr.Hex()),
		zap.Uint64("chain_id", sess.ChainID),
		zap.Bool("writable", binding.writer != nil))
	return binding, nil
}

func (b *Binder) addressFor(chainID uint64) (common.Address, bool) {
	if b.hasExplicit {
		return b.explicit, true
	}
	addr, ok := b.overrides[chainID]
	return addr, ok
}

// onSessionChange revokes the cached binding when the chain or account
// it was bound against no longer matches the session.
func (b *Binder) onSessionChange(s session.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.current
	if cur == nil {
		return
	}
	if cur.chainID != s.ChainID || cur.account != s.Account {
		cur.valid.Store(false)
		b.current = nil
		b.log.Debug("contract binding invalidated",
			zap.Uint64("chain_id", s.ChainID),
			zap.String("account", s.Account))
	}
}
