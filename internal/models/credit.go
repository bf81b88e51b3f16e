package models

import "time"

// TransactionType is the business reason for a ledger entry. The set is
// closed; any other value is rejected at the boundary.
type TransactionType string

const (
	TransactionReading    TransactionType = "reading"
	TransactionPurchase   TransactionType = "purchase"
	TransactionBonus      TransactionType = "bonus"
	TransactionAdjustment TransactionType = "adjustment"
	TransactionRefund     TransactionType = "refund"
	TransactionWelcome    TransactionType = "welcome"
)

// validTransactionTypes is the closed set accepted at the boundary.
var validTransactionTypes = map[TransactionType]bool{
	TransactionReading:    true,
	TransactionPurchase:   true,
	TransactionBonus:      true,
	TransactionAdjustment: true,
	TransactionRefund:     true,
	TransactionWelcome:    true,
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return validTransactionTypes[t]
}

// CreditTransaction is one immutable ledger entry. Once written it is never
// mutated or deleted; the balance is always the sum of a user's deltas,
// never a separately stored counter.
type CreditTransaction struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"user_id"`
	Delta       int64           `json:"delta"` // negative = debit, positive = credit
	Type        TransactionType `json:"type"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreditBalance is derived, not stored: the sum of all transaction deltas
// for a user.
type CreditBalance struct {
	UserID  int64 `json:"user_id"`
	Credits int64 `json:"credits"`
}

// CreditSummary reports spending and purchasing totals for a user.
// TotalSpent counts only debits of type reading or adjustment; refunds are
// tracked as distinct events and never cancel recorded spending.
type CreditSummary struct {
	UserID         int64 `json:"user_id"`
	TotalSpent     int64 `json:"total_spent"`
	TotalPurchased int64 `json:"total_purchased"`
}

// CreditHistoryResponse is the paginated transaction history response.
type CreditHistoryResponse struct {
	Transactions []CreditTransaction `json:"transactions"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// PurchaseCompletedEvent is the payment provider's "purchase completed"
// signal. The provider's checkout flow itself is external; only this effect
// is consumed.
type PurchaseCompletedEvent struct {
	UserID    int64  `json:"user_id"`
	PackageID string `json:"package_id"`
	Credits   int64  `json:"credits"`
}

// SignupEvent is the identity layer's "account created" signal, consumed by
// granting welcome credits.
type SignupEvent struct {
	UserID int64 `json:"user_id"`
}
