package questions

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is returned for any response with a status code of 400 or above.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("questions error %d", e.StatusCode)
	}
	return fmt.Sprintf("questions error %d: %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError, lifting the message or error field from a JSON body.
func newAPIError(status int, body []byte) *APIError {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	return &APIError{StatusCode: status, Message: msg, Body: body}
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
