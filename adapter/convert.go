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

// Package adapter projects reqflow errors into transport- and sink-friendly
// shapes: apis.ErrorView for JSON payloads and logs, Report for the
// reporting sink.
package adapter

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"dirpx.dev/reqflow/apis"
	"dirpx.dev/reqflow/apperr"
	"github.com/google/uuid"
)

// Report is the payload handed to a reporting sink. It is a value type:
// sinks may keep it after Report returns.
type Report struct {
	// ID uniquely identifies the report, for correlation with logs.
	ID uuid.UUID `json:"id"`

	// Context is the caller-supplied tag, e.g. "API Response Error: /api/tasks".
	Context string `json:"context,omitempty"`

	// Time is when the error was handled.
	Time time.Time `json:"time"`

	// Error is the view of the handled error.
	Error apis.ErrorView `json:"error"`
}

// ToView converts an error into a public ErrorView. It performs no
// redaction: the view exposes exactly what the error instance contains.
//
// Structured field details stored under apperr.DetailFields are copied as
// is. Every other detail is flattened into a single "meta" entry whose Info
// holds the stringified values, sorted by key when rendered.
func ToView(e *apperr.Error) apis.ErrorView {
	if e == nil {
		return apis.ErrorView{}
	}
	v := apis.ErrorView{
		Kind:    string(e.Kind),
		Code:    string(e.Code),
		Message: e.Message,
	}
	if e.Cause != nil {
		v.Cause = e.Cause.Error()
	}

	var de apis.DetailedError
	if e.Cause != nil && errors.As(e.Cause, &de) {
		v.Details = append(v.Details, de.ErrorDetails()...)
	}
	if fs, ok := e.Details[apperr.DetailFields].([]apis.Detail); ok {
		v.Details = append(v.Details, fs...)
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		if k == apperr.DetailFields {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		info := make(map[string]string, len(keys))
		for _, k := range keys {
			info[k] = fmt.Sprint(e.Details[k])
		}
		v.Details = append(v.Details, apis.Detail{Type: "meta", Info: info})
	}
	return v
}

// ToReport builds a reporting payload for e, tagged with the caller's
// context string.
func ToReport(e *apperr.Error, context string, now time.Time) Report {
	return Report{
		ID:      uuid.New(),
		Context: context,
		Time:    now.UTC(),
		Error:   ToView(e),
	}
}
