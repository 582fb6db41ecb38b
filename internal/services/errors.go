package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingInput  = errors.New("missing input")
	ErrResourceOpen  = errors.New("resource open error")
	ErrExternalTool  = errors.New("external tool error")
	ErrTimeout       = errors.New("timeout")
	ErrCanceled      = errors.New("canceled")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Kind labels used in structured failure results.
const (
	KindMissingInput  = "missing_input"
	KindResourceOpen  = "resource_open"
	KindTimeout       = "external_stage_timeout"
	KindExternalTool  = "external_stage_failure"
	KindCanceled      = "canceled"
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindInternal      = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	wrapped := &stageError{
		stage:   strings.TrimSpace(stage),
		message: strings.TrimSpace(message),
		cause:   err,
	}
	if err != nil {
		wrapped.err = fmt.Errorf("%w: %s: %w", marker, detail, err)
	} else {
		wrapped.err = fmt.Errorf("%w: %s", marker, detail)
	}
	return wrapped
}

// FromContext converts a finished context into the matching marker error.
// It returns nil while the context is still live.
func FromContext(ctx context.Context, stage, operation string) error {
	if ctx == nil {
		return nil
	}
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ErrTimeout, stage, operation, "stage exceeded its allotted time", err)
	default:
		return Wrap(ErrCanceled, stage, operation, "run aborted", err)
	}
}

type stageError struct {
	stage   string
	message string
	cause   error
	err     error
}

func (e *stageError) Error() string { return e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// Failure is the user-visible shape of a failed run.
type Failure struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

func (f Failure) String() string {
	if f.Stage != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Stage, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Details classifies err into a Failure. The outermost Wrap call supplies the
// stage and message; the marker decides the kind.
func Details(err error) Failure {
	if err == nil {
		return Failure{}
	}
	failure := Failure{Kind: FailureKind(err), Message: strings.TrimSpace(err.Error())}
	var se *stageError
	if errors.As(err, &se) {
		failure.Stage = se.stage
		if se.message != "" {
			failure.Message = se.message
			if se.cause != nil {
				failure.Message += ": " + strings.TrimSpace(se.cause.Error())
			}
		}
	}
	return failure
}

// FailureKind maps an error to its kind label.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, ErrResourceOpen):
		return KindResourceOpen
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// Retryable reports whether rerunning the whole job may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransient)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
