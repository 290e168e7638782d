package ledger

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a structured error returned by the ledger API.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
	TID        string // server-side trace id, useful in support tickets
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger api error [%d] %s", e.StatusCode, e.Message)
}

// faultEnvelope is the ledger's error response shape.
type faultEnvelope struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
		} `json:"Error"`
	} `json:"Fault"`
}

// newAPIError parses a ledger error response body. Unparseable bodies fall
// back to a truncated raw-text message.
func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		TID:        resp.Header.Get("ledger_tid"),
	}

	var fault faultEnvelope
	if err := json.Unmarshal(body, &fault); err == nil && len(fault.Fault.Error) > 0 {
		apiErr.Message = fault.Fault.Error[0].Message
		apiErr.Detail = fault.Fault.Error[0].Detail
		return apiErr
	}

	msg := string(body)
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if msg == "" {
		msg = resp.Status
	}
	apiErr.Message = msg
	return apiErr
}
