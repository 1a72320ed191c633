package wallet

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/mintwatch/mintwatch/internal/fileutil"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// SaveKeystore writes the mnemonic to path, age-encrypted with a
// passphrase-derived scrypt recipient.
func SaveKeystore(path, mnemonic, passphrase string) error {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := io.WriteString(w, mnemonic); err != nil {
		return fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, buf.Bytes(), 0o600)
}

// LoadKeystore reads and decrypts the mnemonic from path.
func LoadKeystore(path, passphrase string) (string, error) {
	// #nosec G304 -- keystore path is from validated config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", mwerr.WithDetails(mwerr.ErrKeystoreNotFound, map[string]string{"path": path})
		}
		return "", err
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return "", mwerr.Wrap(mwerr.ErrDecryptionFailed, "opening keystore")
	}

	mnemonic, err := io.ReadAll(r)
	if err != nil {
		return "", mwerr.Wrap(mwerr.ErrDecryptionFailed, "reading keystore")
	}

	return string(mnemonic), nil
}
