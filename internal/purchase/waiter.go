package purchase

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mintwatch/mintwatch/internal/provider"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// Receipt is the subset of the transaction receipt the executor reads.
type Receipt struct {
	TxHash      string `json:"transactionHash"`
	Status      string `json:"status"`
	BlockNumber string `json:"blockNumber"`
}

// Succeeded reports whether the transaction executed without revert.
func (r *Receipt) Succeeded() bool {
	return r.Status == "0x1"
}

// Block returns the inclusion block number.
func (r *Receipt) Block() uint64 {
	n, err := hexutil.DecodeUint64(r.BlockNumber)
	if err != nil {
		return 0
	}
	return n
}

// waiter polls for transaction inclusion.
type waiter struct {
	provider provider.Provider
	interval time.Duration
	timeout  time.Duration
}

// wait blocks until the transaction has a receipt, the timeout elapses,
// or ctx is cancelled.
func (w *waiter) wait(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		raw, err := w.provider.Request(ctx, provider.MethodGetReceipt, hash.Hex())
		if err == nil && !bytes.Equal(raw, []byte("null")) {
			var receipt Receipt
			if err := json.Unmarshal(raw, &receipt); err != nil {
				return nil, mwerr.Wrap(err, "decoding receipt")
			}
			return &receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, mwerr.Wrap(ctx.Err(), "waiting for transaction %s", hash.Hex())
		case <-ticker.C:
		}
	}
}
