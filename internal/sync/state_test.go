package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupplyStateDerivations(t *testing.T) {
	tests := []struct {
		name      string
		issued    uint64
		cap       uint64
		remaining uint64
		soldOut   bool
		progress  float64
	}{
		{"one left", 9999, 10000, 1, false, 0.9999},
		{"sold out", 10000, 10000, 0, true, 1},
		{"over-issued clamps", 10001, 10000, 0, true, 1},
		{"fresh", 0, 10000, 10000, false, 0},
		{"unconfigured cap", 9999, 0, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SupplyState{Issued: tt.issued, Cap: tt.cap}
			assert.Equal(t, tt.remaining, s.Remaining())
			assert.Equal(t, tt.soldOut, s.SoldOut())
			assert.InDelta(t, tt.progress, s.Progress(), 1e-9)
			assert.Equal(t, tt.cap == 0, s.Unconfigured())
		})
	}
}

func TestPhaseAndRarityNames(t *testing.T) {
	assert.Equal(t, "not-started", PhaseNotStarted.String())
	assert.Equal(t, "whitelist", PhaseWhitelist.String())
	assert.Equal(t, "public", PhasePublic.String())
	assert.Equal(t, "unknown", SalePhase(9).String())

	assert.Equal(t, "common", RarityCommon.String())
	assert.Equal(t, "rare", RarityRare.String())
	assert.Equal(t, "epic", RarityEpic.String())
	assert.Equal(t, "legendary", RarityLegendary.String())
	assert.Equal(t, "unknown", Rarity(9).String())
}
