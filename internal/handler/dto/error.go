// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse is the envelope for every error returned by the API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failed request. Fields is set for validation
// failures and maps a request field to its messages.
type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}
