package contract

import (
	"context"
	"encoding/json"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mintwatch/mintwatch/internal/provider"
	"github.com/mintwatch/mintwatch/internal/session"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// SaleInfo is the aggregate sale snapshot read from the contract.
type SaleInfo struct {
	Active       bool
	Phase        uint8
	CurrentPrice *big.Int
	MaxWallet    *big.Int
}

// BoxStatus is the per-token status triple.
type BoxStatus struct {
	Purchased bool
	Revealed  bool
	Rarity    uint8
}

// Binding is a resolved contract on a specific chain. Reads are always
// available; the write capability exists only when the session had an
// account at resolution time.
type Binding struct {
	addr    common.Address
	chainID uint64
	account string
	valid   atomic.Bool

	reader *Reader
	writer *Writer
}

func newBinding(sm *session.Manager, parsed abi.ABI, addr common.Address, sess session.Session) *Binding {
	b := &Binding{
		addr:    addr,
		chainID: sess.ChainID,
		account: sess.Account,
	}
	b.valid.Store(true)

	b.reader = &Reader{provider: sm.Provider(), abi: parsed, addr: addr}
	if sess.HasAccount() {
		b.writer = &Writer{
			provider: sm.Provider(),
			abi:      parsed,
			addr:     addr,
			from:     sess.Account,
			binding:  b,
		}
	}
	return b
}

// Address returns the bound contract address.
func (b *Binding) Address() common.Address { return b.addr }

// ChainID returns the chain the binding was resolved on.
func (b *Binding) ChainID() uint64 { return b.chainID }

// Valid reports whether the binding still matches the session.
func (b *Binding) Valid() bool { return b.valid.Load() }

// Reader returns the read capability.
func (b *Binding) Reader() *Reader { return b.reader }

// Writer returns the write capability, when present.
func (b *Binding) Writer() (*Writer, bool) {
	if b.writer == nil {
		return nil, false
	}
	return b.writer, true
}

// Reader issues view calls against the bound contract.
type Reader struct {
	provider provider.Provider
	abi      abi.ABI
	addr     common.Address
}

func (r *Reader) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, mwerr.Wrap(err, "packing %s", method)
	}

	params := provider.CallParams{To: r.addr.Hex(), Data: hexutil.Encode(data)}
	raw, err := r.provider.Request(ctx, provider.MethodCall, params, "latest")
	if err != nil {
		return nil, mwerr.Wrap(err, "calling %s", method)
	}

	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, mwerr.Wrap(err, "decoding %s result", method)
	}
	return hexutil.Decode(out)
}

func (r *Reader) bigInt(ctx context.Context, method string, args ...any) (*big.Int, error) {
	data, err := r.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	if err := r.abi.UnpackIntoInterface(&out, method, data); err != nil {
		return nil, mwerr.Wrap(err, "unpacking %s", method)
	}
	return out, nil
}

// SaleInfo reads the aggregate sale snapshot.
func (r *Reader) SaleInfo(ctx context.Context) (SaleInfo, error) {
	data, err := r.call(ctx, "getSaleInfo")
	if err != nil {
		return SaleInfo{}, err
	}
	var out SaleInfo
	if err := r.abi.UnpackIntoInterface(&out, "getSaleInfo", data); err != nil {
		return SaleInfo{}, mwerr.Wrap(err, "unpacking getSaleInfo")
	}
	return out, nil
}

// TotalSupply reads the number of issued tokens.
func (r *Reader) TotalSupply(ctx context.Context) (*big.Int, error) {
	return r.bigInt(ctx, "totalSupply")
}

// MaxSupply reads the issuance cap. Zero means unconfigured.
func (r *Reader) MaxSupply(ctx context.Context) (*big.Int, error) {
	return r.bigInt(ctx, "maxSupply")
}

// BalanceOf reads the token count held by owner.
func (r *Reader) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return r.bigInt(ctx, "balanceOf", owner)
}

// OwnerOf reads the owner of a token. Reverts for unissued tokens.
func (r *Reader) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	data, err := r.call(ctx, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	var out common.Address
	if err := r.abi.UnpackIntoInterface(&out, "ownerOf", data); err != nil {
		return common.Address{}, mwerr.Wrap(err, "unpacking ownerOf")
	}
	return out, nil
}

// TokenURI reads the metadata URI of a token.
func (r *Reader) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	data, err := r.call(ctx, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	var out string
	if err := r.abi.UnpackIntoInterface(&out, "tokenURI", data); err != nil {
		return "", mwerr.Wrap(err, "unpacking tokenURI")
	}
	return out, nil
}

// BoxStatus reads the per-token status triple.
func (r *Reader) BoxStatus(ctx context.Context, tokenID *big.Int) (BoxStatus, error) {
	data, err := r.call(ctx, "getBlindBoxStatus", tokenID)
	if err != nil {
		return BoxStatus{}, err
	}
	var out BoxStatus
	if err := r.abi.UnpackIntoInterface(&out, "getBlindBoxStatus", data); err != nil {
		return BoxStatus{}, mwerr.Wrap(err, "unpacking getBlindBoxStatus")
	}
	return out, nil
}

// SaleManager reads the address of the secondary sale-management
// contract.
func (r *Reader) SaleManager(ctx context.Context) (common.Address, error) {
	data, err := r.call(ctx, "saleManager")
	if err != nil {
		return common.Address{}, err
	}
	var out common.Address
	if err := r.abi.UnpackIntoInterface(&out, "saleManager", data); err != nil {
		return common.Address{}, mwerr.Wrap(err, "unpacking saleManager")
	}
	return out, nil
}
