package types

// SuccessEnvelope wraps every 2xx body, including a not_found verification.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError carries the request id so a caller can quote it when reporting
// a failed download or revoke.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
