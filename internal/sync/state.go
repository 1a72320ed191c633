// Package sync keeps a local snapshot of contract state: sale terms,
// supply counters, the account balance, and the owned-asset set. Loads
// are explicit, never clear good data on transient failure, and discard
// completions that a newer load has already superseded.
package sync

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SalePhase is the contract-enforced stage gating who may purchase.
type SalePhase uint8

// Sale phases, matching the contract's phase codes.
const (
	PhaseNotStarted SalePhase = iota
	PhaseWhitelist
	PhasePublic
)

func (p SalePhase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseWhitelist:
		return "whitelist"
	case PhasePublic:
		return "public"
	default:
		return "unknown"
	}
}

// Rarity is the revealed rarity tier of an asset.
type Rarity uint8

// Rarity tiers, matching the contract's rarity codes.
const (
	RarityCommon Rarity = iota
	RarityRare
	RarityEpic
	RarityLegendary
)

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// SaleState is a snapshot of the contract's sale terms. It is derived,
// never authoritative, and may be stale.
type SaleState struct {
	Active       bool
	Phase        SalePhase
	UnitPrice    *big.Int
	MaxPerWallet *big.Int
	LoadedAt     time.Time
}

// SupplyState is a snapshot of the issuance counters.
type SupplyState struct {
	Issued   uint64
	Cap      uint64
	LoadedAt time.Time
}

// Unconfigured reports whether the cap has not been set on-chain.
func (s SupplyState) Unconfigured() bool {
	return s.Cap == 0
}

// Remaining returns the number of tokens still issuable. Zero when the
// cap is unconfigured.
func (s SupplyState) Remaining() uint64 {
	if s.Cap == 0 || s.Issued >= s.Cap {
		return 0
	}
	return s.Cap - s.Issued
}

// SoldOut reports whether issuance reached the cap. An unconfigured cap
// is never sold out.
func (s SupplyState) SoldOut() bool {
	return s.Cap > 0 && s.Issued >= s.Cap
}

// Progress returns the issued fraction in [0, 1]. Zero when the cap is
// unconfigured.
func (s SupplyState) Progress() float64 {
	if s.Cap == 0 {
		return 0
	}
	p := float64(s.Issued) / float64(s.Cap)
	if p > 1 {
		return 1
	}
	return p
}

// OwnedAsset is one token held by the active account.
type OwnedAsset struct {
	TokenID     uint64
	Owner       common.Address
	MetadataURI string
	Revealed    bool
	Rarity      Rarity
}

// State is a snapshot of everything the synchronizer tracks. Sale and
// Supply are nil before their first successful load.
type State struct {
	Sale      *SaleState
	SaleStale bool // last sale load failed; Sale holds the prior snapshot
	Supply    *SupplyState
	Balance   *big.Int
	Assets    []OwnedAsset
}
