package docmail

import (
	"errors"
	"fmt"
	"strings"
)

// Step identifies one stage of a delivery.
type Step string

// Delivery steps, in order. StepAuthenticate precedes delivery and is only reported in events.
const (
	StepAuthenticate Step = "authenticate"
	StepCreate       Step = "create"
	StepAttach       Step = "attach"
	StepSend         Step = "send"
)

// Step failures, matched with errors.Is against a *DeliveryError.
var (
	ErrCreate = errors.New("create message failed")
	ErrAttach = errors.New("attach file failed")
	ErrSend   = errors.New("send message failed")
)

// ErrNoMessageID is returned when the provider accepts a message but does not identify it.
var ErrNoMessageID = errors.New("provider returned no message ID")

// FieldError describes one rejected input field.
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// ValidationError is returned when caller input is malformed. Its fields are safe to show the caller.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// AuthenticationError is returned when the provider rejects the credentials.
type AuthenticationError struct {
	Message string // provider's error message
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Message
}

// TransportError is returned when the provider cannot be reached or its reply cannot be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned when a provider reply has a status the operation does not accept.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

// DeliveryError reports the first failing step of a delivery.
// MessageID is set when the message was created before the failure and is left on the provider.
type DeliveryError struct {
	Step      Step
	MessageID string
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("%s step failed for message %s: %v", e.Step, e.MessageID, e.Err)
	}
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is matches the step sentinel.
func (e *DeliveryError) Is(target error) bool {
	switch e.Step {
	case StepCreate:
		return target == ErrCreate
	case StepAttach:
		return target == ErrAttach
	case StepSend:
		return target == ErrSend
	}
	return false
}
