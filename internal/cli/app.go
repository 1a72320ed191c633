package cli

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/mintwatch/mintwatch/internal/config"
	"github.com/mintwatch/mintwatch/internal/contract"
	"github.com/mintwatch/mintwatch/internal/event"
	"github.com/mintwatch/mintwatch/internal/provider"
	"github.com/mintwatch/mintwatch/internal/purchase"
	"github.com/mintwatch/mintwatch/internal/session"
	statesync "github.com/mintwatch/mintwatch/internal/sync"
	"github.com/mintwatch/mintwatch/internal/wallet"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// walletAccounts is how many accounts the dev wallet derives.
const walletAccounts = 5

// app is the composition root: every component wired together for one
// command invocation.
type app struct {
	provider *provider.Node
	session  *session.Manager
	binder   *contract.Binder
	syncer   *statesync.Synchronizer
	bus      *event.Bus
	exec     *purchase.Executor
}

// newApp wires the full stack. withSigner controls whether the local
// dev wallet is unlocked; commands that only read leave it locked.
func newApp(withSigner bool) (*app, error) {
	profile, err := registry.Lookup(cfg.DefaultNetwork)
	if err != nil {
		return nil, err
	}

	var signer provider.Signer
	if withSigner {
		signer, err = unlockWallet()
		if err != nil {
			return nil, err
		}
	}

	node := provider.NewNode(registry.Profiles(), profile, signer, logger)
	sm := session.NewManager(node, registry, logger)

	binder, err := contract.NewBinder(sm, registry, cfg.ContractOverrides(), contractFlag, logger)
	if err != nil {
		node.Close()
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Scan.RatePerSecond), cfg.Scan.Burst)
	syncer := statesync.NewSynchronizer(binder, sm, limiter, logger)

	bus := event.NewBus()
	exec := purchase.NewExecutor(binder, syncer, bus, sm, purchase.Options{
		ResyncDelays:   cfg.Purchase.ResyncDelays(),
		ReceiptPoll:    time.Duration(cfg.Purchase.ReceiptPollMS) * time.Millisecond,
		ReceiptTimeout: time.Duration(cfg.Purchase.ReceiptTimeoutS) * time.Second,
	}, logger)

	return &app{
		provider: node,
		session:  sm,
		binder:   binder,
		syncer:   syncer,
		bus:      bus,
		exec:     exec,
	}, nil
}

// close tears the stack down in reverse order.
func (a *app) close() {
	a.exec.Close()
	a.binder.Close()
	a.session.Close()
	a.provider.Close()
}

// keystorePath resolves the keystore location from config, relative to
// the data directory unless absolute.
func keystorePath() string {
	path := cfg.Wallet.KeystoreFile
	if path == "" {
		path = "keystore.age"
	}
	if !filepath.IsAbs(path) {
		home := homeDir
		if home == "" {
			home = os.Getenv(config.EnvHome)
		}
		if home == "" {
			home = config.DefaultHome()
		}
		path = filepath.Join(home, path)
	}
	return path
}

// unlockWallet loads the dev wallet from the encrypted keystore.
func unlockWallet() (*wallet.Wallet, error) {
	path := keystorePath()
	if _, err := os.Stat(path); err != nil {
		return nil, mwerr.WithDetails(mwerr.ErrKeystoreNotFound, map[string]string{"path": path})
	}

	passphrase, err := promptPassword("Keystore passphrase: ")
	if err != nil {
		return nil, err
	}

	mnemonic, err := wallet.LoadKeystore(path, string(passphrase))
	zeroBytes(passphrase)
	if err != nil {
		return nil, err
	}

	return wallet.FromMnemonic(mnemonic, walletAccounts)
}
