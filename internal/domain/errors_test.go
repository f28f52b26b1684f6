package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError("reader.sync", ErrDeviceUnreachable, "AA:BB:CC:DD:EE:FF")
	want := "reader.sync: AA:BB:CC:DD:EE:FF: device unreachable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewDomainError("store.save", ErrStoreFailure, "")
	if bare.Error() != "store.save: measurement store failed" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	err := NewDomainError("parse", ErrFrameTooShort, "3 bytes")
	if !errors.Is(err, ErrFrameTooShort) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestWrapOp(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Error("WrapOp(nil) should be nil")
	}
	err := WrapOp("reader.connect", ErrDeviceNotFound)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Error("wrapped error should match sentinel")
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, CodeUnknown},
		{ErrFrameHeader, CodeFrameHeader},
		{NewDomainError("parse", ErrFrameImplausible, "spo2 200"), CodeFrameImplausible},
		{fmt.Errorf("outer: %w", ErrNoMeasurements), CodeNoMeasurements},
		{errors.New("unrelated"), CodeUnknown},
	}
	for _, tt := range tests {
		if got := ErrorCodeOf(tt.err); got != tt.want {
			t.Errorf("ErrorCodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestDomainError_Code(t *testing.T) {
	err := NewDomainError("ble.connect", ErrNotConnected, "")
	if err.Code() != CodeNotConnected {
		t.Errorf("Code() = %s, want %s", err.Code(), CodeNotConnected)
	}
	unknown := NewDomainError("op", errors.New("x"), "")
	if unknown.Code() != CodeUnknown {
		t.Errorf("Code() = %s, want %s", unknown.Code(), CodeUnknown)
	}
}
