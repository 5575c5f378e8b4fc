package flows

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrModel      = errors.New("model call failed")
)

// ValidationError reports a flow input or output that does not match the
// flow's contract.
type ValidationError struct {
	Flow   string
	Stage  string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Flow, e.Stage, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ModelError wraps a failure returned by the engine or speaker.
type ModelError struct {
	Flow string
	Err  error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Flow, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

func (e *ModelError) Is(target error) bool {
	return target == ErrModel
}
