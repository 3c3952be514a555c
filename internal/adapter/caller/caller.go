// Package caller resolves the account a request acts for.
package caller

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Header carries the address of the party invoking an operation.
const Header = "Ax-Caller-Id"

// Normalize returns the EIP-55 checksummed form of raw, so one account
// compares equal whatever letter case it was sent in.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return "", false
	}
	return common.HexToAddress(raw).Hex(), true
}

// FromRequest reads Header. ok is false when it is missing or not an address.
func FromRequest(r *http.Request) (addr string, ok bool) {
	return Normalize(r.Header.Get(Header))
}
