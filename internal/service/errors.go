package service

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a query failure for the transport layer.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidArgument
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is returned by every Service operation that fails.
type Error struct {
	Kind    Kind
	Symbol  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by the provider deadline.
func (e *Error) Timeout() bool {
	return e.Kind == KindUpstream && errors.Is(e.Err, context.DeadlineExceeded)
}

func notFound(symbol, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Symbol: symbol, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(symbol, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Symbol: symbol, Message: fmt.Sprintf(format, args...)}
}

func upstream(symbol string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Symbol:  symbol,
		Message: fmt.Sprintf("market data provider failed for ticker '%s'", symbol),
		Err:     err,
	}
}

// KindOf returns the kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool        { return KindOf(err) == KindNotFound }
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }
func IsUpstream(err error) bool        { return KindOf(err) == KindUpstream }
