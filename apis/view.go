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

package apis

// ViewProvider is implemented by errors that can produce a transport-friendly,
// self-contained representation of themselves.
//
// The dispatcher uses the view when it forwards an error to a reporting sink,
// so the sink never needs to know about the concrete error type.
type ViewProvider interface {
	error

	// ErrorView returns a transport-friendly snapshot of the error.
	ErrorView() ErrorView
}

// ErrorView is a minimal, serializable representation of an error.
//
// This is the shape that is safe to log or to ship to a reporting service;
// the cause chain is flattened into a message, never exposed as a value.
type ErrorView struct {
	// Kind is the taxonomy tag, e.g. "AUTHENTICATION".
	Kind string `json:"kind"`

	// Code is the optional machine code, e.g. "TOKEN_REFRESH_TIMEOUT".
	Code string `json:"code,omitempty"`

	// Message is the human-facing message.
	Message string `json:"message,omitempty"`

	// Cause is the flattened message of the wrapped cause, if any.
	Cause string `json:"cause,omitempty"`

	// Details is an optional list of structured details.
	Details []Detail `json:"details,omitempty"`
}
