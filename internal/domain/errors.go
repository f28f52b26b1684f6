package domain

import (
	"errors"
	"fmt"
)

// Category sentinels — use with NewDomainError to add operation context.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrDisabled     = fmt.Errorf("disabled")
)

// Sentinel errors for the domain layer.
var (
	ErrDeviceNotFound    = fmt.Errorf("device not found")
	ErrDeviceUnreachable = fmt.Errorf("device unreachable")
	ErrNotConnected      = fmt.Errorf("device not connected")
	ErrAlreadyConnected  = fmt.Errorf("device already connected")
	ErrCharNotFound      = fmt.Errorf("gatt characteristic not found")
	ErrBLEUnsupported    = fmt.Errorf("binary built without ble support")
	ErrFrameTooShort     = fmt.Errorf("frame too short")
	ErrFrameHeader       = fmt.Errorf("unexpected frame header")
	ErrFrameImplausible  = fmt.Errorf("frame values out of plausible range")
	ErrFrameTimestamp    = fmt.Errorf("frame timestamp invalid")
	ErrStoreFailure      = fmt.Errorf("measurement store failed")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrNoMeasurements    = fmt.Errorf("no measurements received")
	ErrSyncInProgress    = fmt.Errorf("sync already in progress")
	ErrScheduleInvalid   = fmt.Errorf("sync schedule invalid")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "reader.sync")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeDisabled         ErrorCode = "DISABLED"
	CodeDeviceNotFound   ErrorCode = "DEVICE_NOT_FOUND"
	CodeDeviceUnreach    ErrorCode = "DEVICE_UNREACHABLE"
	CodeNotConnected     ErrorCode = "NOT_CONNECTED"
	CodeAlreadyConnected ErrorCode = "ALREADY_CONNECTED"
	CodeCharNotFound     ErrorCode = "CHARACTERISTIC_NOT_FOUND"
	CodeBLEUnsupported   ErrorCode = "BLE_UNSUPPORTED"
	CodeFrameTooShort    ErrorCode = "FRAME_TOO_SHORT"
	CodeFrameHeader      ErrorCode = "FRAME_HEADER"
	CodeFrameImplausible ErrorCode = "FRAME_IMPLAUSIBLE"
	CodeFrameTimestamp   ErrorCode = "FRAME_TIMESTAMP"
	CodeStoreFailure     ErrorCode = "STORE_FAILURE"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeNoMeasurements   ErrorCode = "NO_MEASUREMENTS"
	CodeSyncInProgress   ErrorCode = "SYNC_IN_PROGRESS"
	CodeScheduleInvalid  ErrorCode = "SCHEDULE_INVALID"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:          CodeNotFound,
	ErrTimeout:           CodeTimeout,
	ErrInvalidInput:      CodeInvalidInput,
	ErrDisabled:          CodeDisabled,
	ErrDeviceNotFound:    CodeDeviceNotFound,
	ErrDeviceUnreachable: CodeDeviceUnreach,
	ErrNotConnected:      CodeNotConnected,
	ErrAlreadyConnected:  CodeAlreadyConnected,
	ErrCharNotFound:      CodeCharNotFound,
	ErrBLEUnsupported:    CodeBLEUnsupported,
	ErrFrameTooShort:     CodeFrameTooShort,
	ErrFrameHeader:       CodeFrameHeader,
	ErrFrameImplausible:  CodeFrameImplausible,
	ErrFrameTimestamp:    CodeFrameTimestamp,
	ErrStoreFailure:      CodeStoreFailure,
	ErrConfigLoad:        CodeConfigLoad,
	ErrNoMeasurements:    CodeNoMeasurements,
	ErrSyncInProgress:    CodeSyncInProgress,
	ErrScheduleInvalid:   CodeScheduleInvalid,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and walks the chain with errors.Is.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
