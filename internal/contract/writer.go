package contract

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mintwatch/mintwatch/internal/provider"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// Writer submits state-changing calls through the wallet provider. It
// refuses to write through a binding the session has outgrown.
type Writer struct {
	provider provider.Provider
	abi      abi.ABI
	addr     common.Address
	from     string
	binding  *Binding
}

// From returns the account the writer signs as.
func (w *Writer) From() string { return w.from }

// EstimatePurchase runs the gas estimation for purchaseBox with the
// given payment value. The raw provider error is returned untouched so
// callers can classify it.
func (w *Writer) EstimatePurchase(ctx context.Context, value *big.Int) (uint64, error) {
	if err := w.check(); err != nil {
		return 0, err
	}

	data, err := w.abi.Pack("purchaseBox")
	if err != nil {
		return 0, mwerr.Wrap(err, "packing purchaseBox")
	}

	params := provider.CallParams{
		From:  w.from,
		To:    w.addr.Hex(),
		Value: hexutil.EncodeBig(value),
		Data:  hexutil.Encode(data),
	}
	raw, err := w.provider.Request(ctx, provider.MethodEstimateGas, params)
	if err != nil {
		return 0, err
	}

	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, mwerr.Wrap(err, "decoding gas estimate")
	}
	return hexutil.DecodeUint64(out)
}

// PurchaseBox submits the payable purchase call with value as payment.
// The raw provider error is returned untouched so callers can classify
// it.
func (w *Writer) PurchaseBox(ctx context.Context, value *big.Int) (common.Hash, error) {
	if err := w.check(); err != nil {
		return common.Hash{}, err
	}

	data, err := w.abi.Pack("purchaseBox")
	if err != nil {
		return common.Hash{}, mwerr.Wrap(err, "packing purchaseBox")
	}

	params := provider.TxParams{
		From:  w.from,
		To:    w.addr.Hex(),
		Value: hexutil.EncodeBig(value),
		Data:  hexutil.Encode(data),
	}
	raw, err := w.provider.Request(ctx, provider.MethodSendTransaction, params)
	if err != nil {
		return common.Hash{}, err
	}

	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return common.Hash{}, mwerr.Wrap(err, "decoding transaction hash")
	}
	return common.HexToHash(out), nil
}

func (w *Writer) check() error {
	if !w.binding.Valid() {
		return mwerr.Wrap(mwerr.ErrNotConnected, "binding invalidated by session change")
	}
	return nil
}
