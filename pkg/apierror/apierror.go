// Copyright 2025 AUTHORS
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apierror defines the internal error taxonomy shared by every
// service package. The HTTP surface maps a Kind to a status code and to the
// cloud's JSON error envelope; nothing below pkg/httpapi needs to know about
// HTTP at all.
package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way every service-layer method reports
// failure, independent of transport.
type Kind string

const (
	InvalidArgument   Kind = "InvalidArgument"
	PathTraversal     Kind = "PathTraversal"
	NotFound          Kind = "NotFound"
	AlreadyExists     Kind = "AlreadyExists"
	FailedPrecondition Kind = "FailedPrecondition"
	ResourceExhausted Kind = "ResourceExhausted"
	DeadlineExceeded  Kind = "DeadlineExceeded"
	Unavailable       Kind = "Unavailable"
	Internal          Kind = "Internal"
)

// Error is the concrete error type returned by every service-layer method
// that can fail. Reason is an optional machine-readable sub-classification
// echoed into the cloud's error envelope (e.g. "PathTraversal").
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind that wraps an underlying
// error, preserving it for errors.Is/As and logging.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithReason attaches a machine-readable reason string (surfaced in the
// cloud's error envelope's errors[].reason field) and returns e for chaining.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// KindOf extracts the Kind from err, defaulting to Internal if err is not
// (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
