package loan

import "github.com/holiman/uint256"

var hundred = uint256.NewInt(100)

// RepaymentDue computes principal + principal*rate/100 with integer division.
// ok is false if any intermediate value overflows 256 bits.
func RepaymentDue(principal *uint256.Int, rate uint32) (*uint256.Int, bool) {
	if principal == nil {
		return nil, false
	}
	interest, overflow := new(uint256.Int).MulOverflow(principal, uint256.NewInt(uint64(rate)))
	if overflow {
		return nil, false
	}
	interest.Div(interest, hundred)
	due, overflow := new(uint256.Int).AddOverflow(principal, interest)
	if overflow {
		return nil, false
	}
	return due, true
}
