package device

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when asking for state that was never observed.
var ErrNotFound = errors.New("not found")

// ProbeError wraps a failed adapter call.
type ProbeError struct {
	Probe string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Probe, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// NewProbeError wraps err, returning nil when err is nil.
func NewProbeError(probe string, err error) error {
	if err == nil {
		return nil
	}
	return &ProbeError{Probe: probe, Err: err}
}
