package sync

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	gosync "sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mintwatch/mintwatch/internal/contract"
	"github.com/mintwatch/mintwatch/internal/network"
	"github.com/mintwatch/mintwatch/internal/provider"
	"github.com/mintwatch/mintwatch/internal/session"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

const (
	testAccount  = "0xAAA0000000000000000000000000000000000001"
	otherAccount = "0xBBB0000000000000000000000000000000000002"
	contractAddr = "0x1111111111111111111111111111111111111111"
)

// fakeChain simulates the blind-box contract behind the provider
// protocol, answering eth_call by decoding the packed selector.
type fakeChain struct {
	abi     abi.ABI
	account string

	mu         gosync.Mutex
	saleActive bool
	salePhase  uint8
	salePrice  *big.Int
	saleMax    *big.Int
	saleErr    bool

	total     uint64
	maxSupply uint64
	supplyErr bool

	owners    map[uint64]string
	revealed  map[uint64]bool
	rarities  map[uint64]uint8
	uris      map[uint64]string
	statusErr map[uint64]bool
}

func newFakeChain(t *testing.T, account string) *fakeChain {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(contract.BlindBoxABI))
	require.NoError(t, err)
	return &fakeChain{
		abi:       parsed,
		account:   account,
		salePrice: big.NewInt(0),
		saleMax:   big.NewInt(0),
		owners:    make(map[uint64]string),
		revealed:  make(map[uint64]bool),
		rarities:  make(map[uint64]uint8),
		uris:      make(map[uint64]string),
		statusErr: make(map[uint64]bool),
	}
}

func (f *fakeChain) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case provider.MethodChainID:
		return json.Marshal(hexutil.EncodeUint64(31337))
	case provider.MethodRequestAccounts, provider.MethodAccounts:
		if f.account == "" {
			return json.Marshal([]string{})
		}
		return json.Marshal([]string{f.account})
	case provider.MethodCall:
		return f.handleCall(params[0])
	default:
		return json.RawMessage("null"), nil
	}
}

func (f *fakeChain) OnAccountsChanged(func([]string)) func() { return func() {} }
func (f *fakeChain) OnChainChanged(func(uint64)) func()      { return func() {} }

func (f *fakeChain) handleCall(param any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var p provider.CallParams
	b, _ := json.Marshal(param)
	_ = json.Unmarshal(b, &p)
	data := hexutil.MustDecode(p.Data)

	var name string
	var m abi.Method
	for n, method := range f.abi.Methods {
		if len(data) >= 4 && string(method.ID) == string(data[:4]) {
			name, m = n, method
			break
		}
	}

	revert := &provider.RPCError{Code: -32000, Message: "execution reverted"}

	pack := func(outputs ...any) (json.RawMessage, error) {
		out, err := m.Outputs.Pack(outputs...)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hexutil.Encode(out))
	}

	tokenArg := func() uint64 {
		vals, _ := m.Inputs.Unpack(data[4:])
		return vals[0].(*big.Int).Uint64()
	}

	switch name {
	case "getSaleInfo":
		if f.saleErr {
			return nil, revert
		}
		return pack(f.saleActive, f.salePhase, f.salePrice, f.saleMax)
	case "totalSupply":
		if f.supplyErr {
			return nil, revert
		}
		return pack(new(big.Int).SetUint64(f.total))
	case "maxSupply":
		if f.supplyErr {
			return nil, revert
		}
		return pack(new(big.Int).SetUint64(f.maxSupply))
	case "balanceOf":
		vals, _ := m.Inputs.Unpack(data[4:])
		owner := vals[0].(common.Address)
		count := int64(0)
		for _, o := range f.owners {
			if common.HexToAddress(o) == owner {
				count++
			}
		}
		return pack(big.NewInt(count))
	case "ownerOf":
		id := tokenArg()
		owner, ok := f.owners[id]
		if !ok {
			return nil, revert
		}
		return pack(common.HexToAddress(owner))
	case "getBlindBoxStatus":
		id := tokenArg()
		if f.statusErr[id] {
			return nil, revert
		}
		return pack(true, f.revealed[id], f.rarities[id])
	case "tokenURI":
		return pack(f.uris[tokenArg()])
	default:
		return nil, revert
	}
}

func newTestSync(t *testing.T, chain *fakeChain) *Synchronizer {
	t.Helper()

	registry, err := network.NewRegistry([]network.Profile{
		{NetworkID: "localhost", ChainID: 31337, DisplayName: "Localhost", RPCURL: "http://127.0.0.1:8545",
			NativeCurrency: network.Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}},
	}, "localhost")
	require.NoError(t, err)

	sm := session.NewManager(chain, registry, zap.NewNop())
	_, err = sm.Connect(context.Background())
	require.NoError(t, err)

	binder, err := contract.NewBinder(sm, registry,
		map[string]string{"localhost": contractAddr}, "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(binder.Close)

	return NewSynchronizer(binder, sm, nil, zap.NewNop())
}

func TestLoadSale(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	chain.saleActive = true
	chain.salePhase = 2
	chain.salePrice = big.NewInt(80000000)
	chain.saleMax = big.NewInt(10)
	s := newTestSync(t, chain)

	sale, err := s.LoadSale(context.Background())
	require.NoError(t, err)
	assert.True(t, sale.Active)
	assert.Equal(t, PhasePublic, sale.Phase)
	assert.Equal(t, big.NewInt(80000000), sale.UnitPrice)
	assert.False(t, sale.LoadedAt.IsZero())

	st := s.State()
	require.NotNil(t, st.Sale)
	assert.False(t, st.SaleStale)
}

func TestLoadSaleFailureRetainsPriorSnapshot(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	chain.saleActive = true
	chain.salePrice = big.NewInt(42)
	s := newTestSync(t, chain)

	_, err := s.LoadSale(context.Background())
	require.NoError(t, err)

	chain.mu.Lock()
	chain.saleErr = true
	chain.mu.Unlock()

	_, err = s.LoadSale(context.Background())
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrTransientRead))

	st := s.State()
	require.NotNil(t, st.Sale)
	assert.True(t, st.SaleStale)
	assert.True(t, st.Sale.Active)
	assert.Equal(t, big.NewInt(42), st.Sale.UnitPrice)
}

func TestLoadSupplyScenario(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	chain.total = 9999
	chain.maxSupply = 10000
	s := newTestSync(t, chain)

	supply, err := s.LoadSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply.Remaining())
	assert.False(t, supply.SoldOut())
	assert.InDelta(t, 0.9999, supply.Progress(), 1e-9)

	// One more issuance sells out.
	chain.mu.Lock()
	chain.total = 10000
	chain.mu.Unlock()

	supply, err = s.LoadSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), supply.Remaining())
	assert.True(t, supply.SoldOut())
}

func TestLoadSupplyAllOrNothing(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	chain.total = 5
	chain.maxSupply = 10
	s := newTestSync(t, chain)

	_, err := s.LoadSupply(context.Background())
	require.NoError(t, err)

	chain.mu.Lock()
	chain.supplyErr = true
	chain.mu.Unlock()

	_, err = s.LoadSupply(context.Background())
	require.Error(t, err)
	assert.True(t, mwerr.Is(err, mwerr.ErrTransientRead))

	st := s.State()
	require.NotNil(t, st.Supply)
	assert.Equal(t, uint64(5), st.Supply.Issued)
}

func TestLoadBalanceWithoutAccount(t *testing.T) {
	chain := newFakeChain(t, "")
	s := newTestSync(t, chain)

	balance, err := s.LoadBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), balance)
}

func TestLoadOwnedAssetsScan(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	chain.total = 5
	chain.maxSupply = 10
	chain.owners[0] = otherAccount
	chain.owners[1] = testAccount
	chain.owners[3] = testAccount
	chain.owners[4] = testAccount
	// Token 2 unissued: ownerOf reverts and the scan skips it.
	chain.revealed[1] = true
	chain.rarities[1] = 3
	chain.uris[1] = "ipfs://QmExample/1.json"
	// Token 4 has an unreadable status and is skipped.
	chain.statusErr[4] = true
	s := newTestSync(t, chain)

	assets, err := s.LoadOwnedAssets(context.Background())
	require.NoError(t, err)

	require.Len(t, assets, 2)
	assert.Equal(t, uint64(1), assets[0].TokenID)
	assert.True(t, assets[0].Revealed)
	assert.Equal(t, RarityLegendary, assets[0].Rarity)
	assert.Equal(t, "ipfs://QmExample/1.json", assets[0].MetadataURI)
	assert.Equal(t, uint64(3), assets[1].TokenID)
	assert.False(t, assets[1].Revealed)

	for _, a := range assets {
		assert.Equal(t, common.HexToAddress(testAccount), a.Owner)
	}
}

func TestLoadOwnedAssetsWithoutAccount(t *testing.T) {
	chain := newFakeChain(t, "")
	chain.total = 3
	s := newTestSync(t, chain)

	assets, err := s.LoadOwnedAssets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestRefreshSubLoadsAreIndependent(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	chain.total = 2
	chain.maxSupply = 10
	chain.saleErr = true // sale fails, everything else succeeds
	chain.owners[0] = testAccount
	s := newTestSync(t, chain)

	st, err := s.Refresh(context.Background())
	require.Error(t, err)

	assert.Nil(t, st.Sale)
	assert.True(t, st.SaleStale)
	require.NotNil(t, st.Supply)
	assert.Equal(t, uint64(2), st.Supply.Issued)
	require.NotNil(t, st.Balance)
	assert.Equal(t, int64(1), st.Balance.Int64())
	assert.Len(t, st.Assets, 1)
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	chain := newFakeChain(t, testAccount)
	s := newTestSync(t, chain)

	older := s.begin()
	newer := s.begin()

	fresh := &SupplyState{Issued: 10, Cap: 100}
	require.True(t, s.apply(supplySlot, newer, func(st *State) { st.Supply = fresh }))

	// The older load completes late; its result must not overwrite.
	stale := &SupplyState{Issued: 9, Cap: 100}
	assert.False(t, s.apply(supplySlot, older, func(st *State) { st.Supply = stale }))

	assert.Equal(t, uint64(10), s.State().Supply.Issued)
}
