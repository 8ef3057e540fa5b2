package recommend

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Trend and scoring failures are never
// surfaced; they appear as notices on the response instead.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Steps at which a recommendation can fail.
const (
	StepValidate = "validate"
	StepWeather  = "weather"
	StepClassify = "classify"
)

// Error records the failed step and its kind. errors.Is matches both the kind
// sentinel and the underlying cause.
type Error struct {
	Step string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func invalid(err error) *Error {
	return &Error{Step: StepValidate, Kind: ErrInvalidInput, Err: err}
}

func unavailable(step string, err error) *Error {
	return &Error{Step: step, Kind: ErrUpstreamUnavailable, Err: err}
}
