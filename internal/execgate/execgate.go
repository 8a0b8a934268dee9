package execgate

import (
	"context"
	"fmt"
	"time"
)

// ErrorKind classifies an execution failure so callers can decide which
// fixed response to return without inspecting driver errors.
type ErrorKind string

const (
	KindMalformed    ErrorKind = "malformed"
	KindTimeout      ErrorKind = "timeout"
	KindConnectivity ErrorKind = "connectivity"
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("query execution failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	RowCount int
	Duration time.Duration
}

// Engine runs a validated statement against the data source. Implementations
// must refuse writes at the connection or transaction level regardless of
// what upstream validation concluded.
type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	HealthCheck(ctx context.Context) error
}
