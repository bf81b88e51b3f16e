package models

// ErrorResponse is the JSON error response shape shared by all handlers.
// Expected business outcomes (rate limited, insufficient credits) carry
// distinct codes so clients can tell them apart from internal errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
