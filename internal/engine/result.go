// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"errors"
	"fmt"
)

// Result is the opaque status code returned by every engine operation.
// Zero is success; anything else is surfaced verbatim.
type Result int64

const (
	OK Result = 0

	// ResultNotCreated is returned by a Handle whose instance was never created.
	ResultNotCreated Result = 0x80004005
	// ResultReleased is returned by a Handle after Release.
	ResultReleased Result = 0x80000013
	// ResultInvalidArg flags an argument the engine rejected.
	ResultInvalidArg Result = 0x80070057
	// ResultNotImplemented flags an operation the engine does not support.
	ResultNotImplemented Result = 0x80004001
)

var (
	ErrEngineCall = errors.New("engine call failed")
	ErrNotCreated = errors.New("engine instance not created")
	ErrNilSink    = errors.New("callback sink is nil")
	ErrNilLibrary = errors.New("engine library is nil")
)

// Failed reports whether r is a non-zero status.
func (r Result) Failed() bool {
	return r != OK
}

// String renders the status in the 32-bit hex form engines document.
func (r Result) String() string {
	return fmt.Sprintf("0x%08X", uint32(r))
}

// Err converts a non-zero result into a *ResultError, or nil on success.
func (r Result) Err(op string) error {
	if r == OK {
		return nil
	}
	return &ResultError{Op: op, Code: r}
}

// ResultError carries a non-zero engine status for callers that prefer errors.
type ResultError struct {
	Op   string
	Code Result
}

func (e *ResultError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("engine call failed: result=%s", e.Code)
	}
	return fmt.Sprintf("engine %s failed: result=%s", e.Op, e.Code)
}

func (e *ResultError) Unwrap() error {
	if e.Code == ResultNotCreated {
		return ErrNotCreated
	}
	return ErrEngineCall
}
