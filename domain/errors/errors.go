// Package errors provides the error taxonomy of the native counter wrapper.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/native-counter/domain/entities"
)

// Sentinels for errors.Is matching. The typed errors below match them.
var (
	ErrAllocation      = stdErrors.New("native allocation failed")
	ErrInvalidArgument = stdErrors.New("invalid argument")
	ErrUseAfterDispose = stdErrors.New("use after dispose")
	ErrNativeCall      = stdErrors.New("native call failed")
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// AllocationError reports that the native create call returned the null
// sentinel. No handle exists when this is returned.
type AllocationError struct {
	Err      error // optional cause reported by the backend
	Resource string
	Args     entities.CounterArgs
}

func (e *AllocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to allocate native %s (init=%d, by=%d): %v", e.Resource, e.Args.Init, e.Args.By, e.Err)
	}
	return fmt.Sprintf("failed to allocate native %s (init=%d, by=%d): null handle", e.Resource, e.Args.Init, e.Args.By)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// Is matches ErrAllocation.
func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocation
}

// ToErrorDetail implements DetailedError.
func (e *AllocationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "allocation", Code: "create"}
}

// InvalidArgumentError is returned before any native call is made when an
// argument cannot be passed across the boundary.
type InvalidArgumentError struct {
	Operation string
	Argument  string
	Reason    string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid argument %q: %s", e.Operation, e.Argument, e.Reason)
}

// Is matches ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// ToErrorDetail implements DetailedError.
func (e *InvalidArgumentError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invalid_argument", Code: e.Operation}
}

// UseAfterDisposeError is returned for any operation on a released handle.
// The native layer is never invoked in that case.
type UseAfterDisposeError struct {
	Operation string
}

func (e *UseAfterDisposeError) Error() string {
	return fmt.Sprintf("%s: counter used after dispose", e.Operation)
}

// Is matches ErrUseAfterDispose.
func (e *UseAfterDisposeError) Is(target error) bool {
	return target == ErrUseAfterDispose
}

// ToErrorDetail implements DetailedError.
func (e *UseAfterDisposeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "use_after_dispose", Code: e.Operation}
}

// NativeCallError wraps a failure reported by the native layer itself
// (a trap, a memory fault, a closed module). It is never retried.
type NativeCallError struct {
	Err       error
	Operation string
	Backend   string
}

func (e *NativeCallError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("native %s failed (%s): %v", e.Operation, e.Backend, e.Err)
	}
	return fmt.Sprintf("native %s failed: %v", e.Operation, e.Err)
}

func (e *NativeCallError) Unwrap() error {
	return e.Err
}

// Is matches ErrNativeCall.
func (e *NativeCallError) Is(target error) bool {
	return target == ErrNativeCall
}

// ToErrorDetail implements DetailedError.
func (e *NativeCallError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "native", Code: e.Operation}
	if e.Backend != "" {
		detail.Details = map[string]any{"backend": e.Backend}
	}
	return detail
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// SchemaError represents a schema generation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "schema"}
}

// MemoryError represents a failed allocation in the engine's memory.
type MemoryError struct {
	Requested uint32 // Requested allocation size
	Operation string
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("%s: engine memory allocation of %d bytes failed", e.Operation, e.Requested)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "memory"}
}

// WireFormatError represents a fixed-layout encoding/decoding error.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "wire_format"}
}
