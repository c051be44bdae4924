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
	"errors"
	"fmt"
	"testing"

	"dirpx.dev/reqflow/apis"
	"dirpx.dev/reqflow/code"
)

type kindedErr struct {
	kind string
	code string
	msg  string
	det  []apis.Detail
}

func (e kindedErr) Error() string               { return e.msg }
func (e kindedErr) ErrorKind() string           { return e.kind }
func (e kindedErr) ErrorCode() string           { return e.code }
func (e kindedErr) ErrorDetails() []apis.Detail { return e.det }

func TestClassify_Nil(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatal("Classify(nil) must be nil")
	}
	if KindOf(nil) != "" {
		t.Fatal("KindOf(nil) must be empty")
	}
}

func TestClassify_PassesThroughAppError(t *testing.T) {
	orig := NewAuthorization("")
	wrapped := fmt.Errorf("load tasks: %w", orig)

	if got := Classify(orig); got != orig {
		t.Fatal("direct *Error must be returned as is")
	}
	if got := Classify(wrapped); got != orig {
		t.Fatal("wrapped *Error must be found in the chain")
	}
	if !IsKind(wrapped, Authorization) {
		t.Fatal("IsKind mismatch")
	}
}

func TestClassify_KindedError(t *testing.T) {
	src := &kindedErr{
		kind: "validation",
		code: "title-required",
		msg:  "title is required",
		det:  []apis.Detail{{Type: "field", Field: "title", Reason: "required"}},
	}
	got := Classify(fmt.Errorf("create task: %w", src))

	if got.Kind != Validation {
		t.Fatalf("kind = %q", got.Kind)
	}
	if got.Code != "TITLE_REQUIRED" {
		t.Fatalf("code = %q", got.Code)
	}
	if got.Message != "title is required" {
		t.Fatalf("message = %q", got.Message)
	}
	ds, ok := got.Details[DetailFields].([]apis.Detail)
	if !ok || len(ds) != 1 || ds[0].Field != "title" {
		t.Fatalf("details not carried over: %#v", got.Details)
	}
	if !errors.Is(got, src) {
		t.Fatal("original error must stay in the chain")
	}
}

func TestClassify_KindedErrorDefaults(t *testing.T) {
	got := Classify(&kindedErr{kind: "NETWORK"})
	if got.Code != code.Network {
		t.Fatalf("code = %q, want default %q", got.Code, code.Network)
	}
	if got.Message != defaultMessages[Network] {
		t.Fatalf("message = %q", got.Message)
	}
}

func TestClassify_UnrecognisedBecomesUnknown(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain", errors.New("boom")},
		{"unknown kind tag", &kindedErr{kind: "FATAL", msg: "boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != Unknown {
				t.Fatalf("kind = %q, want UNKNOWN", got.Kind)
			}
			if got.Details[DetailOriginal] != "boom" {
				t.Fatalf("original message not preserved: %#v", got.Details)
			}
			if !errors.Is(got, tt.err) {
				t.Fatal("cause missing")
			}
		})
	}
}

func TestClassify_AppErrorWithInvalidKindBecomesUnknown(t *testing.T) {
	cause := errors.New("disk full")
	for _, k := range []Kind{"", "TIMEOUT"} {
		orig := E(k, "", WithCauseOption(cause))
		got := Classify(fmt.Errorf("save: %w", orig))

		if got.Kind != Unknown {
			t.Fatalf("kind %q: got %s, want UNKNOWN", k, got.Kind)
		}
		if got.Code != DefaultCode(Unknown) {
			t.Fatalf("kind %q: got code %q", k, got.Code)
		}
		if got.Message != DefaultMessage(Unknown) {
			t.Fatalf("kind %q: got message %q", k, got.Message)
		}
		if got.Details[DetailKind] != string(k) {
			t.Fatalf("kind %q: offending kind not kept: %v", k, got.Details)
		}
		if !errors.Is(got, cause) {
			t.Fatalf("kind %q: cause lost", k)
		}
		if orig.Kind != k {
			t.Fatal("Classify must not mutate its input")
		}
		if !IsKind(orig, Unknown) {
			t.Fatalf("kind %q: IsKind(Unknown) must hold", k)
		}
	}

	kept := E("ODD", "task is locked", WithCodeOption("40012"))
	got := Classify(kept)
	if got.Message != "task is locked" || got.Code != "40012" {
		t.Fatalf("message and code must survive normalisation: %+v", got)
	}
}
