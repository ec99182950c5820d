package engine

import (
	"errors"
	"fmt"
)

// StepLimitError reports a tick that failed to reach quiescence within
// the configured step budget. Legal graphs always terminate (cycles are
// rejected at construction); hitting the limit means runtime subscription
// growth built a feedback loop, and failing loudly beats hanging the
// host.
type StepLimitError struct {
	Tick  int64
	Steps int
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("tick %d exceeded step limit: %d steps > %d", e.Tick, e.Steps, e.Limit)
}

// IsStepLimit reports whether err is (or wraps) a StepLimitError.
func IsStepLimit(err error) bool {
	var se *StepLimitError
	return errors.As(err, &se)
}

// UnknownPadError reports an external event addressed to a pad name the
// graph never declared.
type UnknownPadError struct {
	Pad string
}

func (e *UnknownPadError) Error() string {
	return fmt.Sprintf("no pad declared under name %q", e.Pad)
}

// IsUnknownPad reports whether err is (or wraps) an UnknownPadError.
func IsUnknownPad(err error) bool {
	var ue *UnknownPadError
	return errors.As(err, &ue)
}
