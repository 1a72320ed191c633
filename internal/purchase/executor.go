// Package purchase submits blind-box purchase transactions and drives
// the resynchronization that follows a confirmed one: an immediate
// refresh, a refresh request on the event bus, and staggered delayed
// passes that later purchases supersede.
package purchase

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mintwatch/mintwatch/internal/contract"
	"github.com/mintwatch/mintwatch/internal/event"
	"github.com/mintwatch/mintwatch/internal/metrics"
	"github.com/mintwatch/mintwatch/internal/provider"
	"github.com/mintwatch/mintwatch/internal/session"
	statesync "github.com/mintwatch/mintwatch/internal/sync"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// Defaults for Options fields left zero.
var defaultResyncDelays = []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}

const (
	defaultReceiptPoll    = 500 * time.Millisecond
	defaultReceiptTimeout = 2 * time.Minute
	resyncPassTimeout     = 30 * time.Second
)

// Options tunes the executor.
type Options struct {
	ResyncDelays   []time.Duration
	ReceiptPoll    time.Duration
	ReceiptTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if len(o.ResyncDelays) == 0 {
		o.ResyncDelays = defaultResyncDelays
	}
	if o.ReceiptPoll <= 0 {
		o.ReceiptPoll = defaultReceiptPoll
	}
	if o.ReceiptTimeout <= 0 {
		o.ReceiptTimeout = defaultReceiptTimeout
	}
	return o
}

// Result describes a confirmed purchase.
type Result struct {
	TxHash      common.Hash
	BlockNumber uint64
}

// Executor runs the purchase flow end to end.
type Executor struct {
	binder  *contract.Binder
	syncer  *statesync.Synchronizer
	bus     *event.Bus
	session *session.Manager
	sched   *statesync.Scheduler
	opts    Options
	log     *zap.Logger
}

// NewExecutor builds an executor.
func NewExecutor(binder *contract.Binder, syncer *statesync.Synchronizer, bus *event.Bus, sm *session.Manager, opts Options, log *zap.Logger) *Executor {
	return &Executor{
		binder:  binder,
		syncer:  syncer,
		bus:     bus,
		session: sm,
		sched:   statesync.NewScheduler(),
		opts:    opts.withDefaults(),
		log:     log,
	}
}

// Close cancels pending resync passes.
func (e *Executor) Close() {
	e.sched.Cancel()
}

// Purchase submits one purchase at the currently cached unit price and
// waits for inclusion. Preconditions: a write capability and an active
// sale snapshot; neither being met fails without contacting the chain.
func (e *Executor) Purchase(ctx context.Context) (Result, error) {
	res, err := e.purchase(ctx)
	metrics.Global.RecordPurchase(err)
	return res, err
}

func (e *Executor) purchase(ctx context.Context) (Result, error) {
	binding, err := e.binder.Resolve()
	if err != nil {
		return Result{}, err
	}

	writer, ok := binding.Writer()
	if !ok {
		return Result{}, mwerr.WithMessage(mwerr.ErrNotPurchasable,
			"no account is connected, purchase requires a signer")
	}

	state := e.syncer.State()
	if state.Sale == nil {
		return Result{}, mwerr.WithMessage(mwerr.ErrNotPurchasable,
			"sale state has not been loaded yet")
	}
	if !state.Sale.Active {
		return Result{}, mwerr.WithMessage(mwerr.ErrNotPurchasable,
			"the sale is not active")
	}
	price := state.Sale.UnitPrice

	e.log.Info("submitting purchase",
		zap.String("contract", binding.Address().Hex()),
		zap.String("from", writer.From()),
		zap.String("value_wei", price.String()))

	if _, err := writer.EstimatePurchase(ctx, price); err != nil {
		if provider.IsUserRejected(err) {
			return Result{}, mwerr.Wrap(mwerr.ErrUserRejected, "purchase")
		}
		return Result{}, e.revertError(err, true)
	}

	hash, err := writer.PurchaseBox(ctx, price)
	if err != nil {
		if provider.IsUserRejected(err) {
			return Result{}, mwerr.Wrap(mwerr.ErrUserRejected, "purchase")
		}
		return Result{}, e.revertError(err, false)
	}

	w := &waiter{provider: e.session.Provider(), interval: e.opts.ReceiptPoll, timeout: e.opts.ReceiptTimeout}
	receipt, err := w.wait(ctx, hash)
	if err != nil {
		return Result{TxHash: hash}, err
	}
	if !receipt.Succeeded() {
		return Result{TxHash: hash}, e.revertError(
			&provider.RPCError{Code: -32000, Message: "transaction reverted on chain"}, false)
	}

	e.log.Info("purchase confirmed",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block", receipt.Block()))

	e.afterConfirm(ctx, binding.Address(), hash)
	return Result{TxHash: hash, BlockNumber: receipt.Block()}, nil
}

// afterConfirm runs the post-purchase resynchronization: a refresh
// request for other subscribers, one synchronous refresh, and the
// staggered delayed passes. Scheduling replaces any passes still
// pending from a previous purchase. The refresh request carries the
// confirmed transaction hash as its correlation id.
func (e *Executor) afterConfirm(ctx context.Context, addr common.Address, hash common.Hash) {
	e.bus.Publish(event.NewRefreshRequest(addr, hash.Hex()))

	if _, err := e.syncer.Refresh(ctx); err != nil {
		e.log.Warn("post-purchase refresh incomplete", zap.Error(err))
	}

	e.sched.Schedule(e.opts.ResyncDelays, func() {
		passCtx, cancel := context.WithTimeout(context.Background(), resyncPassTimeout)
		defer cancel()
		if _, err := e.syncer.Refresh(passCtx); err != nil {
			e.log.Warn("delayed resync incomplete", zap.Error(err))
		}
	})
}

// revertError wraps a chain failure with its classified diagnostic.
func (e *Executor) revertError(cause error, preflight bool) error {
	diag := Classify(cause, preflight)
	err := mwerr.WithMessage(mwerr.ErrPurchaseReverted, diag)
	err.Cause = cause
	return err
}
