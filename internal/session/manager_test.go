package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mintwatch/mintwatch/internal/network"
	"github.com/mintwatch/mintwatch/internal/provider"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// fakeProvider scripts wallet provider behavior for manager tests.
type fakeProvider struct {
	mu sync.Mutex

	chainID  uint64
	known    map[uint64]bool
	accounts []string

	rejectAccounts bool
	rejectSwitch   bool
	accountsDelay  time.Duration

	requestAccountsCalls int
	addChainCalls        int

	accountSubs []func([]string)
	chainSubs   []func(uint64)
}

func newFakeProvider(chainID uint64, accounts ...string) *fakeProvider {
	return &fakeProvider{
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true},
		accounts: accounts,
	}
}

func (f *fakeProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case provider.MethodChainID:
		return mustJSON(hexutil.EncodeUint64(f.chainID)), nil

	case provider.MethodRequestAccounts:
		f.requestAccountsCalls++
		if f.accountsDelay > 0 {
			f.mu.Unlock()
			time.Sleep(f.accountsDelay)
			f.mu.Lock()
		}
		if f.rejectAccounts {
			return nil, &provider.RPCError{Code: provider.CodeUserRejected, Message: "user rejected"}
		}
		return mustJSON(f.accounts), nil

	case provider.MethodSwitchChain:
		var p provider.SwitchChainParams
		remarshal(params[0], &p)
		target, _ := hexutil.DecodeUint64(p.ChainID)
		if f.rejectSwitch {
			return nil, &provider.RPCError{Code: -32000, Message: "switch refused"}
		}
		if !f.known[target] {
			return nil, &provider.RPCError{Code: provider.CodeUnrecognizedChain, Message: "unrecognized chain"}
		}
		f.chainID = target
		for _, fn := range f.chainSubs {
			fn(target)
		}
		return json.RawMessage("null"), nil

	case provider.MethodAddChain:
		var p provider.AddChainParams
		remarshal(params[0], &p)
		id, _ := hexutil.DecodeUint64(p.ChainID)
		f.addChainCalls++
		f.known[id] = true
		return json.RawMessage("null"), nil

	default:
		return json.RawMessage("null"), nil
	}
}

func (f *fakeProvider) OnAccountsChanged(fn func([]string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountSubs = append(f.accountSubs, fn)
	return func() {}
}

func (f *fakeProvider) OnChainChanged(fn func(uint64)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainSubs = append(f.chainSubs, fn)
	return func() {}
}

func (f *fakeProvider) emitAccountsChanged(accounts []string) {
	f.mu.Lock()
	subs := append([]func([]string){}, f.accountSubs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(accounts)
	}
}

func (f *fakeProvider) emitChainChanged(id uint64) {
	f.mu.Lock()
	subs := append([]func(uint64){}, f.chainSubs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(id)
	}
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func remarshal(in, out any) {
	data, _ := json.Marshal(in)
	_ = json.Unmarshal(data, out)
}

func testRegistry(t *testing.T) *network.Registry {
	t.Helper()
	r, err := network.NewRegistry([]network.Profile{
		{NetworkID: "localhost", ChainID: 31337, DisplayName: "Localhost", RPCURL: "http://127.0.0.1:8545",
			NativeCurrency: network.Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}},
		{NetworkID: "sepolia", ChainID: 11155111, DisplayName: "Sepolia", RPCURL: "https://rpc.sepolia.example",
			NativeCurrency: network.Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}},
	}, "sepolia")
	require.NoError(t, err)
	return r
}

func TestConnectNoProvider(t *testing.T) {
	m := NewManager(nil, testRegistry(t), zap.NewNop())

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrProviderUnavailable))
}

func TestConnectHappyPath(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	s, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Connected, s.State)
	assert.Equal(t, uint64(11155111), s.ChainID)
	assert.Equal(t, "0xAAA0000000000000000000000000000000000001", s.Account)
	assert.True(t, s.HasAccount())
	assert.False(t, s.NetworkMismatch)
}

func TestConnectUserRejected(t *testing.T) {
	fp := newFakeProvider(11155111)
	fp.rejectAccounts = true
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrUserRejected))
	assert.Equal(t, Disconnected, m.Session().State)
}

func TestConnectCoalescesConcurrentCalls(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	fp.accountsDelay = 100 * time.Millisecond
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Connect(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, Connected, s.State)
		}()
	}
	wg.Wait()

	// Only one provider prompt was issued.
	assert.Equal(t, 1, fp.requestAccountsCalls)
}

func TestConnectOnUnsupportedChainSwitchesToDefault(t *testing.T) {
	// Chain 999 has no profile; the manager must switch to the default
	// network (sepolia). The provider does not know sepolia either, so
	// the add-chain fallback runs first.
	fp := newFakeProvider(999, "0xAAA0000000000000000000000000000000000001")
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	s, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Connected, s.State)
	assert.Equal(t, uint64(11155111), s.ChainID)
	assert.False(t, s.NetworkMismatch)
	assert.Equal(t, 1, fp.addChainCalls)
}

func TestSwitchFailureIsTerminal(t *testing.T) {
	fp := newFakeProvider(999)
	fp.rejectSwitch = true
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrNetworkSwitchFailed))
}

func TestDisconnectRetainsChainID(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.Disconnect()
	m.Disconnect() // idempotent

	s := m.Session()
	assert.Equal(t, Disconnected, s.State)
	assert.False(t, s.HasAccount())
	assert.Equal(t, uint64(11155111), s.ChainID)
}

func TestAccountsChangedReplacesAccount(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	m := NewManager(fp, testRegistry(t), zap.NewNop())
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	fp.emitAccountsChanged([]string{"0xBBB0000000000000000000000000000000000002"})
	assert.Equal(t, "0xBBB0000000000000000000000000000000000002", m.Session().Account)

	fp.emitAccountsChanged(nil)
	assert.False(t, m.Session().HasAccount())
}

func TestChainChangedTracksMismatch(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	m := NewManager(fp, testRegistry(t), zap.NewNop())
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	fp.emitChainChanged(4242)
	s := m.Session()
	assert.Equal(t, uint64(4242), s.ChainID)
	assert.True(t, s.NetworkMismatch)

	fp.emitChainChanged(31337)
	s = m.Session()
	assert.Equal(t, uint64(31337), s.ChainID)
	assert.False(t, s.NetworkMismatch)
}

func TestSwitchNotifiesBothEdges(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	fp.known[31337] = true
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	var switching []bool
	var mu sync.Mutex
	cancel := m.Subscribe(func(s Session) {
		mu.Lock()
		switching = append(switching, s.Switching)
		mu.Unlock()
	})
	defer cancel()

	require.NoError(t, m.SwitchNetwork(context.Background(), "localhost"))

	// Subscribers see the switch start and complete.
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, switching, true)
	assert.False(t, switching[len(switching)-1])
	assert.False(t, m.Session().Switching)
}

func TestSubscribeNotifiedOnChanges(t *testing.T) {
	fp := newFakeProvider(11155111, "0xAAA0000000000000000000000000000000000001")
	m := NewManager(fp, testRegistry(t), zap.NewNop())

	var got []Session
	var mu sync.Mutex
	cancel := m.Subscribe(func(s Session) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	defer cancel()

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	fp.emitChainChanged(31337)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, uint64(31337), got[len(got)-1].ChainID)
}
