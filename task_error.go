package chanloop

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/baxromumarov/chanloop/chanx"
)

// TaskInfo describes one channel registration in a [Dispatch].
type TaskInfo struct {
	ID   uuid.UUID
	Name string
	Mode Mode
	Kind chanx.Kind
}

// TaskError wraps a failure raised while polling a channel or running
// its callback, together with the [TaskInfo] of the registration.
type TaskError struct {
	Task TaskInfo
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskError reports whether err (or any error in its chain) is a [*TaskError].
func IsTaskError(err error) bool {
	if err == nil {
		return false
	}
	var te *TaskError
	return errors.As(err, &te)
}

// TaskOf extracts the [TaskInfo] from the first [*TaskError] in err's chain.
func TaskOf(err error) (TaskInfo, bool) {
	var te *TaskError
	if err != nil && errors.As(err, &te) {
		return te.Task, true
	}
	return TaskInfo{}, false
}

// CauseOf unwraps the first [*TaskError] in err's chain and returns its
// underlying cause. Other errors are returned unchanged.
func CauseOf(err error) error {
	var te *TaskError
	if err != nil && errors.As(err, &te) {
		return te.Err
	}
	return err
}
