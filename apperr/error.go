/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package apperr

import (
	"fmt"

	"dirpx.dev/reqflow/apis"
	"dirpx.dev/reqflow/code"
)

// Error is the tagged union every terminal reqflow failure is expressed as.
//
// It carries:
//   - Kind: the taxonomy tag (required, one of Kinds());
//   - Code: optional machine code refining the kind;
//   - Message: human-oriented description, suitable for a notice;
//   - Details: arbitrary key/value payload for logs and reporting;
//   - Cause: the wrapped underlying error for errors.Is / errors.As.
//
// An Error is never mutated after creation. All WithX helpers return a
// shallow copy.
type Error struct {
	// Kind is the taxonomy tag of the error.
	Kind Kind

	// Code refines Kind with a machine-usable marker, e.g.
	// "TOKEN_REFRESH_TIMEOUT" or a server business code. May be empty.
	Code code.Code

	// Message is a human-readable explanation. This is what a notice shows.
	Message string

	// Details is an optional, shallow map of extra fields. The map is treated
	// as immutable: WithDetail/WithDetails always copy it.
	Details map[string]any

	// Cause holds the wrapped underlying error, if any.
	Cause error
}

var (
	_ apis.KindedError = (*Error)(nil)
	_ apis.CodedError  = (*Error)(nil)
)

// defaultMessages are used when a constructor receives an empty message.
var defaultMessages = map[Kind]string{
	Network:        "network error, please check your connection",
	Validation:     "validation failed",
	Authentication: "authentication failed, please sign in again",
	Authorization:  "permission denied",
	Business:       "request failed",
	Unknown:        "operation failed, please try again later",
}

// defaultCodes are attached by the kind constructors. Business errors carry
// whatever code the server sent, so they have no default.
var defaultCodes = map[Kind]code.Code{
	Network:        code.Network,
	Validation:     code.Validation,
	Authentication: code.Auth,
	Authorization:  code.Permission,
	Unknown:        code.Unknown,
}

// DefaultMessage returns the notice used for kind k when no message is
// supplied. Unknown kinds get the UNKNOWN notice.
func DefaultMessage(k Kind) string {
	if m, ok := defaultMessages[k]; ok {
		return m
	}
	return defaultMessages[Unknown]
}

// DefaultCode returns the code the kind constructors attach to kind k.
func DefaultCode(k Kind) code.Code {
	return defaultCodes[k]
}

// E is the general constructor. It does not attach default messages or
// codes; use the kind constructors for that.
//
// Usage:
//
//	return apperr.E(apperr.Business, "task is locked",
//	    apperr.WithCodeOption("40012"),
//	    apperr.WithDetailOption("task_id", id),
//	)
func E(k Kind, msg string, opts ...Option) *Error {
	e := &Error{Kind: k, Message: msg}
	for _, opt := range opts {
		e = opt(e)
	}
	return e
}

// newKind builds an error of kind k with its default message and code, then
// applies opts so callers can override both.
func newKind(k Kind, msg string, opts []Option) *Error {
	if msg == "" {
		msg = defaultMessages[k]
	}
	e := &Error{Kind: k, Code: defaultCodes[k], Message: msg}
	for _, opt := range opts {
		e = opt(e)
	}
	return e
}

// NewNetwork returns a NETWORK error. An empty msg uses the default notice.
func NewNetwork(msg string, opts ...Option) *Error { return newKind(Network, msg, opts) }

// NewValidation returns a VALIDATION error. An empty msg uses the default notice.
func NewValidation(msg string, opts ...Option) *Error { return newKind(Validation, msg, opts) }

// NewAuthentication returns an AUTHENTICATION error. An empty msg uses the
// default notice.
func NewAuthentication(msg string, opts ...Option) *Error {
	return newKind(Authentication, msg, opts)
}

// NewAuthorization returns an AUTHORIZATION error. An empty msg uses the
// default notice.
func NewAuthorization(msg string, opts ...Option) *Error {
	return newKind(Authorization, msg, opts)
}

// NewBusiness returns a BUSINESS error. The message normally comes from the
// server and is shown verbatim.
func NewBusiness(msg string, opts ...Option) *Error { return newKind(Business, msg, opts) }

// NewUnknown returns an UNKNOWN error. An empty msg uses the default notice.
func NewUnknown(msg string, opts ...Option) *Error { return newKind(Unknown, msg, opts) }

// Error implements the built-in error interface.
//
// The format is:
//
//	<kind>: <message>
//
// or, when Code is present:
//
//	<kind>:<code>: <message>
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code != code.Empty {
		return fmt.Sprintf("%s:%s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// ErrorKind implements apis.KindedError.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// ErrorCode implements apis.CodedError.
func (e *Error) ErrorCode() string { return string(e.Code) }

// WithCode returns a shallow copy of e with the given code set.
func (e *Error) WithCode(c code.Code) *Error {
	cp := *e
	cp.Code = c
	return &cp
}

// WithMessage returns a shallow copy of e with a replaced human message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithDetail returns a shallow copy of e with one extra key/value in Details.
func (e *Error) WithDetail(k string, v any) *Error {
	cp := *e
	if len(cp.Details) == 0 {
		cp.Details = map[string]any{k: v}
		return &cp
	}
	m := make(map[string]any, len(cp.Details)+1)
	for k0, v0 := range cp.Details {
		m[k0] = v0
	}
	m[k] = v
	cp.Details = m
	return &cp
}

// WithDetails returns a shallow copy of e with kv merged into Details, kv
// taking precedence on key conflicts.
func (e *Error) WithDetails(kv map[string]any) *Error {
	if len(kv) == 0 {
		return e
	}
	cp := *e
	m := make(map[string]any, len(cp.Details)+len(kv))
	for k0, v0 := range cp.Details {
		m[k0] = v0
	}
	for k, v := range kv {
		m[k] = v
	}
	cp.Details = m
	return &cp
}

// WithCause returns a shallow copy of e with the given cause attached.
// If err is nil, e is returned unchanged.
func (e *Error) WithCause(err error) *Error {
	if err == nil {
		return e
	}
	cp := *e
	cp.Cause = err
	return &cp
}
