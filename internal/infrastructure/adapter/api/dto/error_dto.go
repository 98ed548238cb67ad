package dto

// ErrorResponse is the standard error body for API responses
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
