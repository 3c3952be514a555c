package loan

import "github.com/holiman/uint256"

// Escrow is the identity of the ledger itself as a transfer endpoint.
const Escrow = "escrow"

type TransferKind string

const (
	TransferCollateralDeposit     TransferKind = "collateral_deposit"
	TransferPrincipalDisbursement TransferKind = "principal_disbursement"
	TransferRepayment             TransferKind = "repayment"
	TransferCollateralRelease     TransferKind = "collateral_release"
	TransferCollateralSeizure     TransferKind = "collateral_seizure"
)

// ValueTransfer is an instruction for the front end's payment backend. The
// ledger only validates amounts and computes directions; it never moves value.
type ValueTransfer struct {
	Kind   TransferKind
	LoanID uint64
	From   string
	To     string
	Amount *uint256.Int
}
