package purchase

import (
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mintwatch/mintwatch/internal/provider"
)

// revertPayloadOffset is where the UTF-8 reason starts inside a
// hex-encoded Error(string) revert payload: "0x", the 4-byte selector,
// the 32-byte ABI offset word, and the 32-byte length word.
const revertPayloadOffset = 138

// estimationDiagnostic is shown when gas estimation fails. The node's
// error does not say which rule rejected the call, so every known
// candidate cause is listed.
const estimationDiagnostic = `purchase rejected during gas estimation; likely causes:
  1. the sale is inactive or sold out
  2. the contract's randomness handler is not configured
  3. the payment value is below the current price
  4. the per-wallet purchase cap is reached`

const genericDiagnostic = "purchase transaction failed"

// Classify turns a raw chain or provider error into the diagnostic
// shown to the user. Precedence: an explicit revert reason verbatim,
// then the estimation composite for pre-flight failures, then a decoded
// raw revert payload, then a generic message.
func Classify(err error, preflight bool) string {
	if err == nil {
		return ""
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		if reason := revertReason(rpcErr.Message); reason != "" {
			return reason
		}
	}

	if preflight || strings.Contains(err.Error(), "estimateGas") {
		return estimationDiagnostic
	}

	if reason := decodeRevertPayload(provider.ErrorData(err)); reason != "" {
		return reason
	}

	return genericDiagnostic
}

// revertReason extracts the human-readable reason a node appends after
// the "execution reverted" marker, if any.
func revertReason(msg string) string {
	const marker = "execution reverted"
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimPrefix(msg[idx+len(marker):], ":")
	return strings.TrimSpace(rest)
}

// decodeRevertPayload decodes the reason string out of a raw
// hex-encoded revert payload. Returns "" when the payload does not
// carry a readable reason.
func decodeRevertPayload(s string) string {
	if len(s) <= revertPayloadOffset {
		return ""
	}

	raw, err := hex.DecodeString(s[revertPayloadOffset:])
	if err != nil {
		return ""
	}
	raw = []byte(strings.TrimRight(string(raw), "\x00"))
	if len(raw) == 0 || !utf8.Valid(raw) {
		return ""
	}
	return string(raw)
}
