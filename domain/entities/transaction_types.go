package entities

// TransactionType tags the business reason for a ledger entry
type TransactionType string

const (
	// Cash movements
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeExchange   TransactionType = "exchange"

	// Raffle movements
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypePrize    TransactionType = "prize"

	// Platform movements
	TransactionTypeCommission TransactionType = "commission"
	TransactionTypeRefund     TransactionType = "refund"

	// TransactionTypeReversal undoes an earlier mutation during saga compensation
	TransactionTypeReversal TransactionType = "reversal"
)

// IsCreditType returns true if the type normally increases the balance
func (tt TransactionType) IsCreditType() bool {
	return tt == TransactionTypeDeposit ||
		tt == TransactionTypePrize ||
		tt == TransactionTypeCommission ||
		tt == TransactionTypeRefund
}

// IsDebitType returns true if the type normally decreases the balance
func (tt TransactionType) IsDebitType() bool {
	return tt == TransactionTypeWithdrawal ||
		tt == TransactionTypePurchase
}

// IsRaffleRelated returns true for raffle purchases and prizes
func (tt TransactionType) IsRaffleRelated() bool {
	return tt == TransactionTypePurchase || tt == TransactionTypePrize
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
