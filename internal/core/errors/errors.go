package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidQueryError   = "invalid_query"
	HttpTenantNotFoundError = "tenant_not_found"
	HttpNotFoundError       = "not_found"
	HttpShuttingDownError   = "shutting_down"
)

// ErrorResponse is the error response body of every HTTP endpoint.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
