// Package errors provides structured error handling for Mintwatch.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitProvider = 3 // Wallet provider unavailable or request rejected
	ExitNotFound = 4 // Resource not found
	ExitChain    = 5 // Chain-reported failure (revert, switch failure)
)

// MintError is the structured error type for Mintwatch.
type MintError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *MintError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *MintError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for MintError.
func (e *MintError) Is(target error) bool {
	var t *MintError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &MintError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	// Provider and session errors.
	ErrProviderUnavailable = &MintError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "no wallet provider available",
		Suggestion: "install a wallet provider or configure a local signer",
		ExitCode:   ExitProvider,
	}

	ErrUserRejected = &MintError{
		Code:     "USER_REJECTED",
		Message:  "request rejected by user",
		ExitCode: ExitProvider,
	}

	ErrNetworkSwitchFailed = &MintError{
		Code:     "NETWORK_SWITCH_FAILED",
		Message:  "failed to switch wallet to the target network",
		ExitCode: ExitChain,
	}

	ErrNotConnected = &MintError{
		Code:       "NOT_CONNECTED",
		Message:    "no wallet session is connected",
		Suggestion: "run connect first",
		ExitCode:   ExitProvider,
	}

	// Contract binding errors.
	ErrUnresolvedContract = &MintError{
		Code:       "UNRESOLVED_CONTRACT",
		Message:    "no contract address is configured for the active network",
		Suggestion: "set a contract address for this network in the configuration",
		ExitCode:   ExitNotFound,
	}

	// Synchronization errors.
	ErrTransientRead = &MintError{
		Code:     "TRANSIENT_READ_FAILURE",
		Message:  "chain read failed, cached state retained",
		ExitCode: ExitGeneral,
	}

	// Purchase errors.
	ErrNotPurchasable = &MintError{
		Code:     "PURCHASE_PRECONDITION_FAILED",
		Message:  "purchase preconditions not met",
		ExitCode: ExitInput,
	}

	ErrPurchaseReverted = &MintError{
		Code:     "PURCHASE_REVERTED",
		Message:  "purchase transaction reverted",
		ExitCode: ExitChain,
	}

	// Network registry errors.
	ErrUnknownNetwork = &MintError{
		Code:     "UNKNOWN_NETWORK",
		Message:  "unknown network",
		ExitCode: ExitInput,
	}

	ErrDuplicateChainID = &MintError{
		Code:     "DUPLICATE_CHAIN_ID",
		Message:  "chain id is already registered for another network",
		ExitCode: ExitInput,
	}

	// Config errors.
	ErrConfigNotFound = &MintError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &MintError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	// Dev wallet errors.
	ErrInvalidMnemonic = &MintError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrKeystoreNotFound = &MintError{
		Code:       "KEYSTORE_NOT_FOUND",
		Message:    "keystore file not found",
		Suggestion: "run wallet init to create a local signer",
		ExitCode:   ExitNotFound,
	}

	ErrDecryptionFailed = &MintError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong passphrase or corrupted file",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &MintError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}
)

// New creates a new MintError with the given code and message.
func New(code, message string) *MintError {
	return &MintError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var me *MintError
	if errors.As(err, &me) {
		return &MintError{
			Code:       me.Code,
			Message:    fmt.Sprintf("%s: %s", msg, me.Message),
			Details:    me.Details,
			Suggestion: me.Suggestion,
			Cause:      err,
			ExitCode:   me.ExitCode,
		}
	}

	return &MintError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var me *MintError
	if errors.As(err, &me) {
		return &MintError{
			Code:       me.Code,
			Message:    me.Message,
			Details:    details,
			Suggestion: me.Suggestion,
			Cause:      me.Cause,
			ExitCode:   me.ExitCode,
		}
	}

	return &MintError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var me *MintError
	if errors.As(err, &me) {
		return &MintError{
			Code:       me.Code,
			Message:    me.Message,
			Details:    me.Details,
			Suggestion: suggestion,
			Cause:      me.Cause,
			ExitCode:   me.ExitCode,
		}
	}

	return &MintError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithMessage returns a copy of a sentinel with a replacement message.
// The code, suggestion, and exit code are preserved.
func WithMessage(sentinel *MintError, message string) *MintError {
	return &MintError{
		Code:       sentinel.Code,
		Message:    message,
		Suggestion: sentinel.Suggestion,
		ExitCode:   sentinel.ExitCode,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var me *MintError
	if errors.As(err, &me) {
		return me.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var me *MintError
	if errors.As(err, &me) {
		return me.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
