// Package wallet implements the local development signer used by the
// node-backed provider: BIP39 mnemonic generation, BIP44 key derivation
// for the Ethereum coin type, and EIP-155 transaction signing.
package wallet

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// derivationPath is m/44'/60'/0'/0 (BIP44, Ethereum coin type); account
// keys are derived as children of this path.
var derivationPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 60,
	bip32.FirstHardenedChild,
	0,
}

// Wallet holds derived account keys. Keys stay in memory for the process
// lifetime; at-rest protection is the keystore's job.
type Wallet struct {
	keys  map[common.Address]*ecdsa.PrivateKey
	addrs []common.Address
}

// GenerateMnemonic creates a new BIP39 mnemonic phrase.
// wordCount must be 12 (128 bits entropy) or 24 (256 bits entropy).
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", mwerr.Wrap(mwerr.ErrInvalidMnemonic, "word count must be 12 or 24, got %d", wordCount)
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives count accounts from a mnemonic.
func FromMnemonic(mnemonic string, count int) (*Wallet, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, mwerr.ErrInvalidMnemonic
	}
	if count < 1 {
		count = 1
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	parent := master
	for _, idx := range derivationPath {
		parent, err = parent.NewChildKey(idx)
		if err != nil {
			return nil, err
		}
	}

	w := &Wallet{keys: make(map[common.Address]*ecdsa.PrivateKey, count)}
	for i := 0; i < count; i++ {
		child, err := parent.NewChildKey(uint32(i))
		if err != nil {
			return nil, err
		}

		key, err := crypto.ToECDSA(child.Key)
		if err != nil {
			return nil, err
		}

		addr := crypto.PubkeyToAddress(key.PublicKey)
		w.keys[addr] = key
		w.addrs = append(w.addrs, addr)
	}

	return w, nil
}

// Accounts returns the derived account addresses in derivation order.
func (w *Wallet) Accounts() []common.Address {
	out := make([]common.Address, len(w.addrs))
	copy(out, w.addrs)
	return out
}

// SignTx signs a transaction with the key for from using EIP-155.
func (w *Wallet) SignTx(chainID *big.Int, from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	key, ok := w.keys[from]
	if !ok {
		return nil, mwerr.WithDetails(mwerr.ErrInvalidAddress, map[string]string{"address": from.Hex()})
	}

	return types.SignTx(tx, types.NewEIP155Signer(chainID), key)
}
