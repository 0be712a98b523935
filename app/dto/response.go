package dto

// ErrorResponse is the body of every non-2xx HTTP response. Errors carries
// per-field messages when request validation fails.
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}
