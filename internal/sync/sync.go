package sync

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mintwatch/mintwatch/internal/contract"
	"github.com/mintwatch/mintwatch/internal/event"
	"github.com/mintwatch/mintwatch/internal/metrics"
	"github.com/mintwatch/mintwatch/internal/session"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// attachRefreshTimeout bounds a bus-triggered refresh pass.
const attachRefreshTimeout = 30 * time.Second

// slots partition the snapshot so each load line has its own ordering.
type slot int

const (
	saleSlot slot = iota
	supplySlot
	balanceSlot
	assetsSlot
	slotCount
)

// Synchronizer keeps the local State snapshot in step with the bound
// contract. Loads are tagged with a monotonic sequence per slot so a
// completion that arrives after a newer load finished is discarded
// instead of overwriting fresher data.
type Synchronizer struct {
	binder  *contract.Binder
	session *session.Manager
	limiter *rate.Limiter
	log     *zap.Logger

	nextSeq atomic.Uint64

	mu      sync.Mutex
	state   State
	applied [slotCount]uint64
}

// NewSynchronizer builds a synchronizer. limiter bounds the RPC rate of
// the ownership scan; nil means unlimited.
func NewSynchronizer(binder *contract.Binder, sm *session.Manager, limiter *rate.Limiter, log *zap.Logger) *Synchronizer {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Synchronizer{
		binder:  binder,
		session: sm,
		limiter: limiter,
		log:     log,
	}
}

// State returns the current snapshot.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Assets = append([]OwnedAsset(nil), s.state.Assets...)
	return st
}

func (s *Synchronizer) begin() uint64 {
	return s.nextSeq.Add(1)
}

// apply mutates the snapshot unless a newer load of the same slot has
// already completed.
func (s *Synchronizer) apply(sl slot, seq uint64, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied[sl] {
		return false
	}
	s.applied[sl] = seq
	fn(&s.state)
	return true
}

// LoadSale reads the aggregate sale snapshot. On failure the previous
// SaleState is retained and the stale flag is set.
func (s *Synchronizer) LoadSale(ctx context.Context) (SaleState, error) {
	seq := s.begin()

	binding, err := s.binder.Resolve()
	if err != nil {
		return SaleState{}, err
	}

	start := time.Now()
	info, err := binding.Reader().SaleInfo(ctx)
	metrics.Global.RecordLoad(time.Since(start), err)
	if err != nil {
		s.apply(saleSlot, seq, func(st *State) { st.SaleStale = true })
		s.log.Warn("sale load failed, keeping prior snapshot", zap.Error(err))
		return SaleState{}, mwerr.Wrap(mwerr.ErrTransientRead, "loading sale info: %v", err)
	}

	sale := SaleState{
		Active:       info.Active,
		Phase:        SalePhase(info.Phase),
		UnitPrice:    info.CurrentPrice,
		MaxPerWallet: info.MaxWallet,
		LoadedAt:     time.Now(),
	}
	if !s.apply(saleSlot, seq, func(st *State) {
		st.Sale = &sale
		st.SaleStale = false
	}) {
		metrics.Global.RecordStaleDiscard()
		s.log.Debug("sale load superseded", zap.Uint64("seq", seq))
	}
	return sale, nil
}

// LoadSupply reads the issuance counters as a concurrent pair. The pair
// is all-or-nothing: a failure of either read keeps the prior snapshot.
func (s *Synchronizer) LoadSupply(ctx context.Context) (SupplyState, error) {
	seq := s.begin()

	binding, err := s.binder.Resolve()
	if err != nil {
		return SupplyState{}, err
	}
	reader := binding.Reader()

	start := time.Now()
	var issued, maxSupply *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issued, err = reader.TotalSupply(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		maxSupply, err = reader.MaxSupply(gctx)
		return err
	})
	err = g.Wait()
	metrics.Global.RecordLoad(time.Since(start), err)
	if err != nil {
		s.log.Warn("supply load failed, keeping prior snapshot", zap.Error(err))
		return SupplyState{}, mwerr.Wrap(mwerr.ErrTransientRead, "loading supply: %v", err)
	}

	supply := SupplyState{
		Issued:   issued.Uint64(),
		Cap:      maxSupply.Uint64(),
		LoadedAt: time.Now(),
	}
	if !s.apply(supplySlot, seq, func(st *State) { st.Supply = &supply }) {
		metrics.Global.RecordStaleDiscard()
		s.log.Debug("supply load superseded", zap.Uint64("seq", seq))
	}
	return supply, nil
}

// LoadBalance reads the active account's token count. Without an
// account the balance is zero.
func (s *Synchronizer) LoadBalance(ctx context.Context) (*big.Int, error) {
	seq := s.begin()

	sess := s.session.Session()
	if !sess.HasAccount() {
		zero := big.NewInt(0)
		s.apply(balanceSlot, seq, func(st *State) { st.Balance = zero })
		return zero, nil
	}

	binding, err := s.binder.Resolve()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	balance, err := binding.Reader().BalanceOf(ctx, common.HexToAddress(sess.Account))
	metrics.Global.RecordLoad(time.Since(start), err)
	if err != nil {
		s.log.Warn("balance load failed, keeping prior snapshot", zap.Error(err))
		return nil, mwerr.Wrap(mwerr.ErrTransientRead, "loading balance: %v", err)
	}

	s.apply(balanceSlot, seq, func(st *State) { st.Balance = balance })
	return balance, nil
}

// LoadOwnedAssets recomputes the owned-asset set from scratch by
// scanning every issued token id. A token whose reads fail is skipped;
// the scan itself only fails when the balance or supply reads do.
func (s *Synchronizer) LoadOwnedAssets(ctx context.Context) ([]OwnedAsset, error) {
	seq := s.begin()

	sess := s.session.Session()
	if !sess.HasAccount() {
		s.apply(assetsSlot, seq, func(st *State) { st.Assets = nil })
		return nil, nil
	}
	owner := common.HexToAddress(sess.Account)

	binding, err := s.binder.Resolve()
	if err != nil {
		return nil, err
	}
	reader := binding.Reader()

	balance, err := reader.BalanceOf(ctx, owner)
	if err != nil {
		return nil, mwerr.Wrap(mwerr.ErrTransientRead, "loading balance for scan: %v", err)
	}
	if balance.Sign() == 0 {
		s.apply(assetsSlot, seq, func(st *State) { st.Assets = nil })
		return nil, nil
	}

	total, err := reader.TotalSupply(ctx)
	if err != nil {
		return nil, mwerr.Wrap(mwerr.ErrTransientRead, "loading supply for scan: %v", err)
	}

	var assets []OwnedAsset
	skipped := 0
	for id := uint64(0); id < total.Uint64(); id++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		tokenID := new(big.Int).SetUint64(id)
		tokenOwner, err := reader.OwnerOf(ctx, tokenID)
		if err != nil {
			// Unissued or burned token, skip.
			skipped++
			continue
		}
		if tokenOwner != owner {
			continue
		}

		status, err := reader.BoxStatus(ctx, tokenID)
		if err != nil {
			s.log.Warn("skipping token with unreadable status",
				zap.Uint64("token_id", id), zap.Error(err))
			skipped++
			continue
		}
		uri, err := reader.TokenURI(ctx, tokenID)
		if err != nil {
			s.log.Warn("skipping token with unreadable metadata URI",
				zap.Uint64("token_id", id), zap.Error(err))
			skipped++
			continue
		}

		assets = append(assets, OwnedAsset{
			TokenID:     id,
			Owner:       tokenOwner,
			MetadataURI: uri,
			Revealed:    status.Revealed,
			Rarity:      Rarity(status.Rarity),
		})
	}

	metrics.Global.RecordScan(int(total.Uint64()), skipped)
	if !s.apply(assetsSlot, seq, func(st *State) { st.Assets = assets }) {
		metrics.Global.RecordStaleDiscard()
		s.log.Debug("asset scan superseded", zap.Uint64("seq", seq))
	}
	return assets, nil
}

// Refresh runs every load concurrently. Sub-load failures are
// independent: one failing load never blocks or clears the others. The
// returned error joins whatever failed.
func (s *Synchronizer) Refresh(ctx context.Context) (State, error) {
	var wg sync.WaitGroup
	errs := make([]error, 4)

	for i, load := range []func(context.Context) error{
		func(ctx context.Context) error { _, err := s.LoadSale(ctx); return err },
		func(ctx context.Context) error { _, err := s.LoadSupply(ctx); return err },
		func(ctx context.Context) error { _, err := s.LoadBalance(ctx); return err },
		func(ctx context.Context) error { _, err := s.LoadOwnedAssets(ctx); return err },
	} {
		wg.Add(1)
		go func(i int, load func(context.Context) error) {
			defer wg.Done()
			errs[i] = load(ctx)
		}(i, load)
	}
	wg.Wait()

	return s.State(), errors.Join(errs...)
}

// Attach subscribes the synchronizer to refresh requests targeting the
// currently bound contract. Requests for other contracts are ignored.
func (s *Synchronizer) Attach(bus *event.Bus) (cancel func()) {
	return bus.SubscribeAll(func(req event.RefreshRequest) {
		metrics.Global.RecordRefreshRequest()

		binding, err := s.binder.Resolve()
		if err != nil || binding.Address() != req.ContractAddress {
			return
		}

		ctx, done := context.WithTimeout(context.Background(), attachRefreshTimeout)
		defer done()

		if _, err := s.Refresh(ctx); err != nil {
			s.log.Warn("bus-triggered refresh incomplete",
				zap.String("correlation_id", req.CorrelationID), zap.Error(err))
			return
		}
		s.log.Debug("bus-triggered refresh completed",
			zap.String("correlation_id", req.CorrelationID))
	})
}
