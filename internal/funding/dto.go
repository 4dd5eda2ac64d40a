package funding

import "github.com/shopspring/decimal"

// DepositRequest is the client body for a deposit. Amount is in major units
// with at most two decimal places.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// DepositResponse is returned after a deposit is initiated. Amount is in
// minor units.
type DepositResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Amount           int64  `json:"amount"`
}

// WebhookResponse acknowledges every authenticated delivery.
type WebhookResponse struct {
	Status  bool    `json:"status"`
	Outcome Outcome `json:"outcome"`
}

// VerificationView is the gateway verdict echoed to a redirected payer.
type VerificationView struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// CallbackResponse reports the gateway's verdict on a redirect.
type CallbackResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    VerificationView `json:"data"`
}
