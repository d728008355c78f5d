package sink

import "fmt"

// SinkError wraps failures while persisting or reading result files.
type SinkError struct {
	Message string
	Cause   error
}

func (e *SinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sink: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("sink: %s", e.Message)
}

func (e *SinkError) Unwrap() error {
	return e.Cause
}
