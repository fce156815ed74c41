package alpaca

import (
	"encoding/json"
	"fmt"
)

// GatewayError is a non-success response from the brokerage API. It carries
// the upstream status code and raw body so callers can relay both verbatim.
type GatewayError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Message())
}

// Message extracts the broker's error message from the response body, falling
// back to the raw body when it is not the usual {"message": ...} shape.
func (e *GatewayError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if errUnmarshal := json.Unmarshal(e.Body, &body); errUnmarshal == nil && body.Message != "" {
		return body.Message
	}
	return string(e.Body)
}
