// Package network provides the static registry of supported networks.
// A profile maps a logical network name to its chain id, RPC endpoint,
// and display metadata. Profiles are loaded once at process start and
// never mutated.
package network

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// maxSuggestionDistance is the largest edit distance still offered as a
// "did you mean" suggestion for an unknown network name.
const maxSuggestionDistance = 3

// Currency describes the native currency of a network.
type Currency struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"`
}

// Profile describes one supported network.
type Profile struct {
	NetworkID        string   // Logical key, e.g. "sepolia"
	ChainID          uint64   // EIP-155 chain id, unique across profiles
	DisplayName      string   // Human-readable name
	RPCURL           string   // JSON-RPC endpoint
	NativeCurrency   Currency // Native currency metadata
	BlockExplorerURL string   // Empty when the network has no explorer
}

// Registry is an immutable lookup over the configured network profiles.
type Registry struct {
	byName  map[string]Profile
	byChain map[uint64]Profile
	def     string
}

// NewRegistry builds a registry from profiles. Chain ids must be unique;
// defaultNetwork must name one of the profiles.
func NewRegistry(profiles []Profile, defaultNetwork string) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]Profile, len(profiles)),
		byChain: make(map[uint64]Profile, len(profiles)),
		def:     strings.ToLower(strings.TrimSpace(defaultNetwork)),
	}

	for _, p := range profiles {
		name := strings.ToLower(strings.TrimSpace(p.NetworkID))
		if name == "" {
			return nil, mwerr.Wrap(mwerr.ErrConfigInvalid, "network profile with chain id %d has no name", p.ChainID)
		}
		if _, dup := r.byName[name]; dup {
			return nil, mwerr.Wrap(mwerr.ErrConfigInvalid, "duplicate network name %q", name)
		}
		if prev, dup := r.byChain[p.ChainID]; dup {
			return nil, mwerr.WithDetails(mwerr.ErrDuplicateChainID, map[string]string{
				"chain_id": fmt.Sprintf("%d", p.ChainID),
				"networks": prev.NetworkID + ", " + name,
			})
		}
		p.NetworkID = name
		r.byName[name] = p
		r.byChain[p.ChainID] = p
	}

	if _, ok := r.byName[r.def]; !ok {
		return nil, mwerr.Wrap(mwerr.ErrConfigInvalid, "default network %q is not configured", defaultNetwork)
	}

	return r, nil
}

// ByName returns the profile for a network name.
func (r *Registry) ByName(name string) (Profile, bool) {
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ByChainID returns the profile matching a chain id.
func (r *Registry) ByChainID(chainID uint64) (Profile, bool) {
	p, ok := r.byChain[chainID]
	return p, ok
}

// Default returns the default network profile.
func (r *Registry) Default() Profile {
	return r.byName[r.def]
}

// Names returns all configured network names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns all profiles, sorted by network name.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.byName))
	for _, name := range r.Names() {
		out = append(out, r.byName[name])
	}
	return out
}

// Suggest returns the closest configured network name to the input, or
// empty when nothing is close enough to be a plausible typo.
func (r *Registry) Suggest(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	best := ""
	bestDist := maxSuggestionDistance + 1

	for candidate := range r.byName {
		dist := levenshtein.ComputeDistance(name, candidate)
		if dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}

	if bestDist > maxSuggestionDistance {
		return ""
	}
	return best
}

// Lookup resolves a network name, attaching a suggestion on failure.
func (r *Registry) Lookup(name string) (Profile, error) {
	if p, ok := r.ByName(name); ok {
		return p, nil
	}

	err := mwerr.WithDetails(mwerr.ErrUnknownNetwork, map[string]string{"network": name})
	if s := r.Suggest(name); s != "" {
		err = mwerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", s))
	}
	return Profile{}, err
}

// AddressExplorerURL returns the block explorer URL for an address, or
// empty when the profile has no explorer.
func (p Profile) AddressExplorerURL(address string) string {
	if p.BlockExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(p.BlockExplorerURL, "/") + "/address/" + address
}

// TxExplorerURL returns the block explorer URL for a transaction hash.
func (p Profile) TxExplorerURL(txHash string) string {
	if p.BlockExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(p.BlockExplorerURL, "/") + "/tx/" + txHash
}
