// Package format renders chain values for display: wei amounts,
// shortened addresses, rarity and phase names, supply progress.
package format

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mintwatch/mintwatch/internal/sync"
)

var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Ether renders a wei amount as a decimal ether string with up to four
// fractional digits and no trailing zeros.
func Ether(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther)
	s := f.Text('f', 4)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// EtherWithSymbol renders a wei amount with a currency symbol.
func EtherWithSymbol(wei *big.Int, symbol string) string {
	return Ether(wei) + " " + symbol
}

// ShortAddress shortens a hex address to its leading and trailing
// characters: 0xABCDEF…1234.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-4:]
}

// RarityName returns the display name of a rarity tier.
func RarityName(r sync.Rarity) string {
	switch r {
	case sync.RarityCommon:
		return "Common"
	case sync.RarityRare:
		return "Rare"
	case sync.RarityEpic:
		return "Epic"
	case sync.RarityLegendary:
		return "Legendary"
	default:
		return "Unknown"
	}
}

// PhaseName returns the display name of a sale phase.
func PhaseName(p sync.SalePhase) string {
	switch p {
	case sync.PhaseNotStarted:
		return "Not Started"
	case sync.PhaseWhitelist:
		return "Whitelist"
	case sync.PhasePublic:
		return "Public"
	default:
		return "Unknown"
	}
}

// Progress renders the issued fraction of a supply snapshot as a
// percentage with two decimals. Unconfigured caps render as a dash.
func Progress(s sync.SupplyState) string {
	if s.Unconfigured() {
		return "—"
	}
	return fmt.Sprintf("%.2f%%", s.Progress()*100)
}

// Supply renders issued/cap counters.
func Supply(s sync.SupplyState) string {
	if s.Unconfigured() {
		return fmt.Sprintf("%d / ?", s.Issued)
	}
	return fmt.Sprintf("%d / %d", s.Issued, s.Cap)
}
