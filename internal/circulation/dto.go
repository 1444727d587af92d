package circulation

// CheckoutRequest starts a loan. RequestID makes client retries replay the
// original transaction instead of failing.
type CheckoutRequest struct {
	CopyID    string  `json:"copy_id" validate:"required"`
	MemberID  string  `json:"member_id" validate:"required"`
	RequestID *string `json:"request_id,omitempty"`
}

// PaymentRequest records a fee payment
type PaymentRequest struct {
	Amount float64 `json:"amount" validate:"required"`
}

// CheckoutResult is the transaction a checkout created or replayed
type CheckoutResult struct {
	Transaction *Transaction `json:"transaction"`
	Replayed    bool         `json:"replayed"`
}

// TransitionResult is the transaction after a transition. AlreadyApplied is
// set when the transaction was already in the target state and nothing
// changed.
type TransitionResult struct {
	Transaction    *Transaction `json:"transaction"`
	AlreadyApplied bool         `json:"already_applied"`
}

// FeeSummary is a transaction's fee ledger
type FeeSummary struct {
	TransactionID string  `json:"transaction_id"`
	Assessed      float64 `json:"assessed"`
	Paid          float64 `json:"paid"`
	Outstanding   float64 `json:"outstanding"`
}

func newFeeSummary(transactionID string, events []*Event) *FeeSummary {
	assessed, paid := FeeBalance(events)
	return &FeeSummary{
		TransactionID: transactionID,
		Assessed:      roundCents(assessed),
		Paid:          roundCents(paid),
		Outstanding:   roundCents(assessed - paid),
	}
}

// EventsResponse is a transaction's audit trail with its fee ledger
type EventsResponse struct {
	Events []*Event    `json:"events"`
	Fees   *FeeSummary `json:"fees"`
}
