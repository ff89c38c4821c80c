package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrNoContainers is the only fatal condition of a build run: the project
// label matched nothing, so there is nothing to do.
var ErrNoContainers = stdErrors.New("no running containers found for project")

// HandlerNotFoundError is returned by the handler registry when a container's
// base image has no registered handler. The orchestrator treats it as a
// per-container skip, not an abort.
type HandlerNotFoundError struct {
	Image string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler found for image: %s", e.Image)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Msg)
	}
	return fmt.Sprintf("validation error: field %s %s", e.Field, e.Msg)
}

type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
