package pipeline

import (
	"fmt"

	"github.com/jonathan/resume-analyzer/internal/stages"
)

// InputError reports an unusable resume or job text. No stage was dispatched.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StageError reports a delegate failure that aborted a run.
type StageError struct {
	Stage   stages.ID
	Agent   string
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s failed: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("stage %s failed: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
