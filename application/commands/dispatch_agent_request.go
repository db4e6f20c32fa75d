package commands

import "errors"

// DispatchAgentRequestCommand carries a natural-language request into the
// agent control loop (§4.9). The trace id is minted by the caller so the
// HTTP handler can return it before the loop finishes running.
type DispatchAgentRequestCommand struct {
	TraceID string
	Text    string
	UserID  string
}

// Validate validates the command.
func (c DispatchAgentRequestCommand) Validate() error {
	if c.TraceID == "" {
		return errors.New("trace id is required")
	}
	if c.Text == "" {
		return errors.New("text is required")
	}
	return nil
}
