package provider

import (
	"errors"
	"fmt"
)

// Provider error codes from the injected-provider convention.
const (
	// CodeUserRejected is returned when the user declines a request.
	CodeUserRejected = 4001

	// CodeUnrecognizedChain is returned by wallet_switchEthereumChain
	// when the wallet does not know the target chain. It triggers the
	// add-chain fallback.
	CodeUnrecognizedChain = 4902
)

// RPCError is an error reported by the provider or the node behind it.
type RPCError struct {
	Code    int
	Message string
	Data    string // hex-encoded revert payload, when present
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// IsUserRejected reports whether the error is a user rejection.
func IsUserRejected(err error) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Code == CodeUserRejected
}

// IsUnrecognizedChain reports whether the error is the unknown-chain
// switch failure that triggers the add-chain fallback.
func IsUnrecognizedChain(err error) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Code == CodeUnrecognizedChain
}

// ErrorData extracts the revert payload from a provider error, if any.
func ErrorData(err error) string {
	var re *RPCError
	if errors.As(err, &re) {
		return re.Data
	}
	return ""
}
