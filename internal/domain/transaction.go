package domain

import "time"

// Currency is the only unit the transaction endpoint reports.
const Currency = "VSD"

// TransactionStatusCompleted is the status of every simulated transaction.
const TransactionStatusCompleted = "completed"

// TransactionRequest is the payload accepted by the public transaction endpoint.
type TransactionRequest struct {
	FromAddress string  `json:"fromAddress"`
	ToAddress   string  `json:"toAddress"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// Valid reports whether both addresses are present and the amount is positive.
func (r TransactionRequest) Valid() bool {
	return r.FromAddress != "" && r.ToAddress != "" && r.Amount > 0
}

// Transaction is a simulated transfer. It is never written to a ledger.
type Transaction struct {
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	FromAddress   string    `json:"fromAddress"`
	ToAddress     string    `json:"toAddress"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
}
