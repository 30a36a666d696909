package processing

import (
	"errors"
	"fmt"

	"github.com/systemstart/torii/pkg/api"
)

// StepError reports the step whose perform failed. Steps after it were
// skipped.
type StepError struct {
	Target api.Target
	Step   string
	Index  int
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("target %s: step %d (%s) failed: %v", e.Target, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CleanupError collects failures releasing step resources.
type CleanupError struct {
	Target api.Target
	Errs   []error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("target %s: cleanup failed: %v", e.Target, errors.Join(e.Errs...))
}

func (e *CleanupError) Unwrap() []error { return e.Errs }
