package converter

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion failures.
// These can be checked with errors.Is() regardless of the concrete type.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidPort  = errors.New("invalid endpoint port")
)

// MissingFieldError reports a section or key Build cannot do without.
type MissingFieldError struct {
	// Section is the section that was expected, e.g. "Peer".
	Section string
	// Key is empty when the whole section is absent.
	Key string
	// Reason optionally explains why a present value is unusable.
	Reason string
}

func (e *MissingFieldError) Error() string {
	field := e.Section
	if e.Key != "" {
		field += "." + e.Key
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", ErrMissingField, field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMissingField, field)
}

// Is reports whether target is ErrMissingField.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// InvalidPortError reports a peer endpoint whose port is not a base-10 integer.
type InvalidPortError struct {
	Endpoint string
	Port     string
	Err      error
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("%s %q in endpoint %q", ErrInvalidPort, e.Port, e.Endpoint)
}

// Is reports whether target is ErrInvalidPort.
func (e *InvalidPortError) Is(target error) bool {
	return target == ErrInvalidPort
}

func (e *InvalidPortError) Unwrap() error {
	return e.Err
}
