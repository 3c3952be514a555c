// Package amount converts between wei integers and human-readable ether strings.
package amount

import (
	"errors"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of wei decimal places in one ether.
const EtherDecimals = 18

var (
	ErrEmpty    = errors.New("amount: empty value")
	ErrNegative = errors.New("amount: negative value")
	ErrPrecise  = errors.New("amount: more than 18 decimal places")
	ErrTooLarge = errors.New("amount: exceeds 256 bits")
)

// ParseWei parses a base-10 integer wei string.
func ParseWei(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegative
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ParseEther converts an ether-denominated decimal string such as "1.1" to wei.
func ParseEther(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.Sign() < 0 {
		return nil, ErrNegative
	}
	wei := d.Shift(EtherDecimals)
	if !wei.IsInteger() {
		return nil, ErrPrecise
	}
	v, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, ErrTooLarge
	}
	return v, nil
}

// MustEther is ParseEther for constants and tests.
func MustEther(s string) *uint256.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatEther renders wei as an ether decimal string without trailing zeros.
func FormatEther(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei.ToBig(), -EtherDecimals).String()
}
