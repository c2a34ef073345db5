package errorsx

import "net/http"

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// ReasonValidation marks malformed or missing request fields.
	ReasonValidation ReasonCode = "validation"
	// ReasonToolExecution marks a failure raised by a tool's own contract.
	ReasonToolExecution ReasonCode = "tool_execution"
	// ReasonNotFound marks a lookup of a name that is not registered.
	ReasonNotFound ReasonCode = "not_found"
	// ReasonInternal marks unexpected failures inside the service.
	ReasonInternal ReasonCode = "internal"
)

// HTTPStatus maps an error's reason to the status code the API reports.
func HTTPStatus(err error) int {
	switch Reason(err) {
	case ReasonValidation, ReasonToolExecution:
		return http.StatusBadRequest
	case ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
