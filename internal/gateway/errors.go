package gateway

import "fmt"

// ResidentCreationError is returned when POST /residents answers non-2xx.
// The workflow logs it and continues; it never blocks the wizard.
type ResidentCreationError struct {
	StatusCode int
	Body       string
}

func (e *ResidentCreationError) Error() string {
	return fmt.Sprintf("resident creation failed with HTTP %d: %s", e.StatusCode, e.Body)
}

// AppointmentSubmissionError is returned when an appointment cannot be
// submitted, either a non-2xx response or a transport failure. Message is
// suitable for direct display.
type AppointmentSubmissionError struct {
	StatusCode int // 0 on transport failure
	Message    string
	Err        error
}

func (e *AppointmentSubmissionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("appointment submission failed: %v", e.Err)
	}
	return fmt.Sprintf("appointment submission failed with HTTP %d", e.StatusCode)
}

func (e *AppointmentSubmissionError) Unwrap() error {
	return e.Err
}

// StatusError is the generic non-2xx error for the remaining endpoints.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP %d: %s", e.StatusCode, e.Body)
}
