package cli

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

// promptPassword prompts for a passphrase with hidden input. The caller
// is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Fprintln(os.Stderr) // newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new passphrase with confirmation.
func promptNewPassword() ([]byte, error) {
	password, err := promptPassword("Enter keystore passphrase: ")
	if err != nil {
		return nil, err
	}
	if len(password) < 8 {
		zeroBytes(password)
		return nil, mwerr.New("INVALID_INPUT", "passphrase must be at least 8 characters")
	}

	confirm, err := promptPassword("Confirm passphrase: ")
	if err != nil {
		zeroBytes(password)
		return nil, err
	}
	defer zeroBytes(confirm)

	if string(password) != string(confirm) {
		zeroBytes(password)
		return nil, mwerr.New("INVALID_INPUT", "passphrases do not match")
	}
	return password, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
