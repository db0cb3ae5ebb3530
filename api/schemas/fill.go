// Package schemas defines the wire types exchanged with fill triggers.
package schemas

// ActionFillForm is the only action a trigger understands.
const ActionFillForm = "fillForm"

// FillCommand asks the agent to run. It arrives as the HTTP body of
// POST /api/v1/command, as a WebSocket message, or as the payload of a
// floating button click.
type FillCommand struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// FillResponse reports the result of a FillCommand.
type FillResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewFillResponse builds a response from the outcome of a run.
func NewFillResponse(requestID, message string, err error) FillResponse {
	if err != nil {
		return FillResponse{Success: false, Message: err.Error(), RequestID: requestID}
	}
	return FillResponse{Success: true, Message: message, RequestID: requestID}
}
