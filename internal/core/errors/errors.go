package errors

const (
	HttpInternalError          = "internal_error"
	HttpInvalidRequestError    = "invalid_request"
	HttpUnknownEventError      = "unknown_event"
	HttpInvalidPropertiesError = "invalid_properties"
	HttpQueueFullError         = "queue_full"
	HttpShuttingDownError      = "shutting_down"
	HttpUnknownFeatureError    = "unknown_feature"
)

// ErrorResponse is the error response body for every HTTP error.
type ErrorResponse struct {
	Code    string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
