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

package mapper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"

	"dirpx.dev/reqflow/apis"
	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func mustMapper(t *testing.T, opts ...Option) *Mapper {
	t.Helper()
	m, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return m
}

func TestDefaults_HTTP(t *testing.T) {
	m := mustMapper(t)

	tests := []struct {
		status   int
		wantKind apperr.Kind
		wantCode code.Code
	}{
		{http.StatusBadRequest, apperr.Validation, code.Validation},
		{http.StatusUnprocessableEntity, apperr.Validation, code.Validation},
		{http.StatusUnauthorized, apperr.Authentication, code.Auth},
		{http.StatusForbidden, apperr.Authorization, code.Permission},
		{http.StatusNotFound, apperr.Business, code.NotFound},
		{http.StatusConflict, apperr.Business, code.Conflict},
		{http.StatusTooManyRequests, apperr.Business, code.RateLimited},
		{http.StatusTeapot, apperr.Business, code.Empty},
		{http.StatusRequestTimeout, apperr.Network, code.Timeout},
		{http.StatusInternalServerError, apperr.Unknown, code.ServerError},
		{http.StatusNotImplemented, apperr.Unknown, code.ServerError},
		{http.StatusBadGateway, apperr.Network, code.Unavailable},
		{http.StatusServiceUnavailable, apperr.Network, code.Unavailable},
		{http.StatusGatewayTimeout, apperr.Network, code.Timeout},
		{http.StatusFound, apperr.Unknown, code.Unknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			r := m.HTTP(tt.status, "/api/tasks")
			if r.Kind != tt.wantKind || r.Code != tt.wantCode {
				t.Fatalf("HTTP(%d) = %s/%q; want %s/%q", tt.status, r.Kind, r.Code, tt.wantKind, tt.wantCode)
			}
		})
	}
}

func TestDefaults_GRPC(t *testing.T) {
	m := mustMapper(t)
	check := func(c codes.Code, want apperr.Kind) {
		t.Helper()
		if got := m.GRPC(c, "/tasks.v1.TaskService/ListTasks").Kind; got != want {
			t.Fatalf("GRPC(%v) = %s; want %s", c, got, want)
		}
	}
	check(codes.Unauthenticated, apperr.Authentication)
	check(codes.PermissionDenied, apperr.Authorization)
	check(codes.InvalidArgument, apperr.Validation)
	check(codes.Unavailable, apperr.Network)
	check(codes.DeadlineExceeded, apperr.Network)
	check(codes.NotFound, apperr.Business)
	check(codes.Internal, apperr.Unknown)
	check(codes.Canceled, apperr.Unknown)
}

func TestPriority_RouteOverStatusOverRange(t *testing.T) {
	m := mustMapper(t,
		WithHTTPStatus(418, Resolution{Kind: apperr.Validation}),
		WithHTTPRoute(418, "/api/tasks", Resolution{Kind: apperr.Authorization}),
	)
	if got := m.HTTP(418, "/api/tasks/1").Kind; got != apperr.Authorization {
		t.Fatalf("route must win; got %s", got)
	}
	if got := m.HTTP(418, "/api/projects").Kind; got != apperr.Validation {
		t.Fatalf("status must win over range; got %s", got)
	}
	if got := m.HTTP(451, "/api/projects").Kind; got != apperr.Business {
		t.Fatalf("range fallback expected; got %s", got)
	}
}

func TestRoute_LPM_And_SegmentBoundary(t *testing.T) {
	m := mustMapper(t,
		WithHTTPRoute(404, "/api", Resolution{Kind: apperr.Business, Message: "api"}),
		WithHTTPRoute(404, "/api/tasks", Resolution{Kind: apperr.Business, Message: "tasks"}),
		WithHTTPRoute(404, "/api/projects/*/members", Resolution{Kind: apperr.Authorization}),
	)
	if got := m.HTTP(404, "/api/tasks/42").Message; got != "tasks" {
		t.Fatalf("LPM failed: got %q", got)
	}
	if got := m.HTTP(404, "/api/taskss").Message; got != "api" {
		t.Fatalf("segment boundary crossed: got %q", got)
	}
	if got := m.HTTP(404, "/api/projects/p7/members").Kind; got != apperr.Authorization {
		t.Fatalf("wildcard rule failed: got %s", got)
	}
}

func TestGRPCMethodRule(t *testing.T) {
	m := mustMapper(t,
		WithGRPCMethod(codes.FailedPrecondition, "/tasks.v1.TaskService", Resolution{Kind: apperr.Business}),
	)
	if got := m.GRPC(codes.FailedPrecondition, "/tasks.v1.TaskService/CloseTask").Kind; got != apperr.Business {
		t.Fatalf("method rule failed: got %s", got)
	}
	if got := m.GRPC(codes.FailedPrecondition, "/users.v1.UserService/Get").Kind; got != apperr.Validation {
		t.Fatalf("default expected: got %s", got)
	}
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"bad kind", WithHTTPStatus(418, Resolution{Kind: "FATAL"})},
		{"bad code", WithHTTPStatus(418, Resolution{Kind: apperr.Business, Code: "lower case"})},
		{"bad route", WithHTTPRoute(404, "/*", Resolution{Kind: apperr.Business})},
		{"bad method rule kind", WithGRPCMethod(codes.NotFound, "/a.B", Resolution{})},
		{"bad fallback", WithFallback(Resolution{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFromHTTP_Messages(t *testing.T) {
	m := mustMapper(t)

	e := m.FromHTTP(http.StatusConflict, "/api/tasks/1", "task was modified")
	if e.Message != "task was modified" {
		t.Fatalf("server message must be used: %q", e.Message)
	}
	if e.Details[DetailStatus] != http.StatusConflict || e.Details[DetailRoute] != "/api/tasks/1" {
		t.Fatalf("details missing: %#v", e.Details)
	}

	e = m.FromHTTP(http.StatusForbidden, "/api/tasks/1", "nope")
	if e.Message != "permission denied" {
		t.Fatalf("fixed message must win: %q", e.Message)
	}

	e = m.FromHTTP(http.StatusBadRequest, "/api/tasks", "")
	if e.Message != apperr.DefaultMessage(apperr.Validation) {
		t.Fatalf("kind default expected: %q", e.Message)
	}
}

func TestFromGRPC_BadRequestDetails(t *testing.T) {
	m := mustMapper(t)

	st := status.New(codes.InvalidArgument, "title is required")
	st, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: "title", Description: "required"},
		},
	})
	if err != nil {
		t.Fatalf("WithDetails: %v", err)
	}

	e := m.FromGRPC(st.Err(), "/tasks.v1.TaskService/CreateTask")
	if e == nil || e.Kind != apperr.Validation {
		t.Fatalf("expected VALIDATION, got %v", e)
	}
	if e.Message != "title is required" {
		t.Fatalf("message = %q", e.Message)
	}
	fields, ok := e.Details[apperr.DetailFields].([]apis.Detail)
	if !ok || len(fields) != 1 || fields[0].Field != "title" || fields[0].Reason != "required" {
		t.Fatalf("field violations not mapped: %#v", e.Details)
	}

	if m.FromGRPC(errors.New("plain"), "/x.Y/Z") != nil {
		t.Fatal("non-status error must yield nil")
	}
	if m.FromGRPC(nil, "/x.Y/Z") != nil {
		t.Fatal("nil error must yield nil")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransport(t *testing.T) {
	m := mustMapper(t)

	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode code.Code
	}{
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true, code.Timeout},
		{"net timeout", timeoutErr{}, true, code.Timeout},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true, code.Network},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid"}, true, code.Network},
		{"canceled", context.Canceled, false, ""},
		{"plain", errors.New("boom"), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := m.FromTransport(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if e.Kind != apperr.Network || e.Code != tt.wantCode {
				t.Fatalf("got %s/%q, want NETWORK/%q", e.Kind, e.Code, tt.wantCode)
			}
			if !errors.Is(e, tt.err) {
				t.Fatal("cause must be preserved")
			}
		})
	}
}

func TestFromError_Order(t *testing.T) {
	m := mustMapper(t)

	ae := apperr.NewAuthentication("")
	if got := m.FromError(fmt.Errorf("wrap: %w", ae), ""); got != ae {
		t.Fatal("kinded errors must pass through")
	}
	if got := m.FromError(status.Error(codes.PermissionDenied, "no"), "/a.B/C"); got.Kind != apperr.Authorization {
		t.Fatalf("gRPC status expected AUTHORIZATION, got %s", got.Kind)
	}
	if got := m.FromError(syscall.ECONNRESET, ""); got.Kind != apperr.Network {
		t.Fatalf("transport failure expected NETWORK, got %s", got.Kind)
	}
	if got := m.FromError(errors.New("boom"), ""); got.Kind != apperr.Unknown {
		t.Fatalf("expected UNKNOWN, got %s", got.Kind)
	}
	if m.FromError(nil, "") != nil {
		t.Fatal("nil must stay nil")
	}
}
