package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
	ErrRateLimited  = errors.New("rate limited")
)

// kindError ties an operation to an error kind and, optionally, the error
// that caused it. errors.Is matches both the kind and the cause.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	msg := e.op
	if e.kind != nil {
		msg += ": " + e.kind.Error()
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *kindError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind returns an error of kind raised by op because of err.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

// Wrap annotates err with op without classifying it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{op: op, err: err}
}
