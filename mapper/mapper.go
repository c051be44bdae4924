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
	"io"
	"net"
	"strings"
	"syscall"

	"dirpx.dev/reqflow/apis"
	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"dirpx.dev/reqflow/internal/segmenttrie"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Details keys set by the mapper on the errors it builds.
const (
	DetailStatus   = "status"
	DetailRoute    = "route"
	DetailGRPCCode = "grpc_code"
	DetailMethod   = "method"
	DetailReason   = "reason"
	DetailDomain   = "domain"
)

// Mapper is an immutable snapshot combining per-status resolutions,
// per-status route tries and range fallbacks. Lookups are O(depth) and safe
// for concurrent use once constructed.
type Mapper struct {
	httpStatus map[int]Resolution
	grpcCode   map[codes.Code]Resolution

	// httpTrie stores per-status tries keyed by URL path prefix.
	httpTrie map[int]*segmenttrie.Trie[Resolution]

	// grpcTrie stores per-code tries keyed by full method name prefix.
	grpcTrie map[codes.Code]*segmenttrie.Trie[Resolution]

	fallback Resolution
}

// New constructs an immutable Mapper snapshot.
//
// Build process overview:
//
//  1. Seed the builder with library defaults (HTTP & gRPC).
//  2. Apply user-provided options (statuses, codes, route rules).
//  3. Validate every resolution (known Kind, well-formed Code).
//  4. Build per-status and per-code route tries.
//  5. Freeze all maps into fresh allocations.
func New(opts ...Option) (*Mapper, error) {
	b := newBuilder()
	for k, v := range defaultHTTP {
		b.httpStatus[k] = v
	}
	for k, v := range defaultGRPC {
		b.grpcCode[k] = v
	}
	for _, opt := range opts {
		opt(b)
	}

	for s, r := range b.httpStatus {
		if err := validResolution(r); err != nil {
			return nil, fmt.Errorf("mapper: HTTP status %d: %w", s, err)
		}
	}
	for c, r := range b.grpcCode {
		if err := validResolution(r); err != nil {
			return nil, fmt.Errorf("mapper: gRPC code %s: %w", c, err)
		}
	}
	if err := validResolution(b.fallback); err != nil {
		return nil, fmt.Errorf("mapper: fallback: %w", err)
	}

	httpTrie := make(map[int]*segmenttrie.Trie[Resolution], len(b.httpRoutes))
	for s, rules := range b.httpRoutes {
		t, err := buildTrie(rules)
		if err != nil {
			return nil, fmt.Errorf("mapper: HTTP status %d: %w", s, err)
		}
		if t != nil {
			httpTrie[s] = t
		}
	}
	grpcTrie := make(map[codes.Code]*segmenttrie.Trie[Resolution], len(b.grpcRoutes))
	for c, rules := range b.grpcRoutes {
		t, err := buildTrie(rules)
		if err != nil {
			return nil, fmt.Errorf("mapper: gRPC code %s: %w", c, err)
		}
		if t != nil {
			grpcTrie[c] = t
		}
	}

	return &Mapper{
		httpStatus: freeze(b.httpStatus),
		grpcCode:   freeze(b.grpcCode),
		httpTrie:   freeze(httpTrie),
		grpcTrie:   freeze(grpcTrie),
		fallback:   b.fallback,
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level
// defaults built from constant rules.
func MustNew(opts ...Option) *Mapper {
	m, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func buildTrie(rules []routeRule) (*segmenttrie.Trie[Resolution], error) {
	if len(rules) == 0 {
		return nil, nil
	}
	t := segmenttrie.New[Resolution]()
	for _, r := range rules {
		if err := validResolution(r.res); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.prefix, err)
		}
		if err := t.Insert(r.prefix, r.res); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.prefix, err)
		}
	}
	return t, nil
}

func validResolution(r Resolution) error {
	if !r.Kind.Valid() {
		return apperr.ErrKindInvalid
	}
	if r.Code == code.Empty {
		return nil
	}
	return code.Validate(r.Code)
}

// HTTP resolves an HTTP status for the given request path.
//
// Resolution order (highest to lowest):
//  1. route rule registered for the status (LPM on path);
//  2. per-status resolution;
//  3. range fallback for 4xx and 5xx;
//  4. global fallback.
func (m *Mapper) HTTP(status int, path string) Resolution {
	r, _, _ := m.resolveHTTP(status, path)
	return r
}

// GRPC resolves a gRPC code for the given full method name, with the same
// precedence as HTTP minus the range tier.
func (m *Mapper) GRPC(c codes.Code, method string) Resolution {
	r, _, _ := m.resolveGRPC(c, method)
	return r
}

func (m *Mapper) resolveHTTP(status int, path string) (Resolution, string, string) {
	if idx, ok := m.httpTrie[status]; ok && idx != nil {
		if v, ok, pat := idx.MatchWithPattern(path); ok {
			return v, "route", pat
		}
	}
	if v, ok := m.httpStatus[status]; ok {
		return v, "status", ""
	}
	if v, ok := rangeHTTP(status); ok {
		return v, "range", ""
	}
	return m.fallback, "fallback", ""
}

func (m *Mapper) resolveGRPC(c codes.Code, method string) (Resolution, string, string) {
	if idx, ok := m.grpcTrie[c]; ok && idx != nil {
		if v, ok, pat := idx.MatchWithPattern(method); ok {
			return v, "route", pat
		}
	}
	if v, ok := m.grpcCode[c]; ok {
		return v, "code", ""
	}
	return m.fallback, "fallback", ""
}

// FromHTTP builds the error for a failed HTTP exchange. serverMsg is the
// message the server put in its error payload, if any; it is used unless the
// resolution is Fixed.
func (m *Mapper) FromHTTP(status int, path, serverMsg string) *apperr.Error {
	r := m.HTTP(status, path)
	return build(r, serverMsg).
		WithDetail(DetailStatus, status).
		WithDetail(DetailRoute, path)
}

// FromGRPC builds the error for a failed gRPC call. It returns nil when err
// does not carry a gRPC status or carries codes.OK.
//
// google.rpc.BadRequest field violations become apis.Detail entries under
// apperr.DetailFields; google.rpc.ErrorInfo contributes its reason and
// domain.
func (m *Mapper) FromGRPC(err error, method string) *apperr.Error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return nil
	}
	r := m.GRPC(st.Code(), method)
	e := build(r, st.Message()).
		WithDetail(DetailGRPCCode, st.Code().String()).
		WithDetail(DetailMethod, method).
		WithCause(err)

	var fields []apis.Detail
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.BadRequest:
			for _, fv := range v.GetFieldViolations() {
				fields = append(fields, apis.Detail{
					Type:   "field",
					Field:  fv.GetField(),
					Reason: fv.GetDescription(),
				})
			}
		case *errdetails.ErrorInfo:
			e = e.WithDetail(DetailReason, v.GetReason()).WithDetail(DetailDomain, v.GetDomain())
		}
	}
	if len(fields) > 0 {
		e = e.WithDetail(apperr.DetailFields, fields)
	}
	return e
}

// FromTransport recognises failures that never produced a response:
// timeouts, refused or reset connections, DNS failures and truncated
// responses. They all become NETWORK errors. The boolean is false when err
// is not such a failure; callers then fall back to apperr.Classify.
//
// Cancellation is not a transport failure and is never recognised here.
func (m *Mapper) FromTransport(err error) (*apperr.Error, bool) {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil, false
	}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return apperr.NewNetwork("request timed out",
			apperr.WithCodeOption(code.Timeout),
			apperr.WithCauseOption(err),
		), true
	}

	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return apperr.NewNetwork("", apperr.WithCauseOption(err)), true
	}
	return nil, false
}

// FromError normalises any failure returned by a transport call:
//
//   - errors already carrying a kind pass through apperr.Classify unchanged;
//   - gRPC status errors are resolved with FromGRPC for route;
//   - transport failures become NETWORK through FromTransport;
//   - anything else is classified as UNKNOWN.
func (m *Mapper) FromError(err error, route string) *apperr.Error {
	if err == nil {
		return nil
	}
	var ke apis.KindedError
	if errors.As(err, &ke) {
		return apperr.Classify(err)
	}
	if e := m.FromGRPC(err, route); e != nil {
		return e
	}
	if e, ok := m.FromTransport(err); ok {
		return e
	}
	return apperr.Classify(err)
}

func build(r Resolution, serverMsg string) *apperr.Error {
	msg := strings.TrimSpace(serverMsg)
	if r.Fixed || msg == "" {
		msg = r.Message
	}
	if msg == "" {
		msg = apperr.DefaultMessage(r.Kind)
	}
	return apperr.E(r.Kind, msg, apperr.WithCodeOption(r.Code))
}

// Explain produces a textual trace of how the mapper resolved an HTTP
// status for a path.
//
// Example output:
//
//	status=404 route="/api/tasks/42"
//	kind: source=route pattern="/api/tasks" -> BUSINESS code=NOT_FOUND
//
// Notes:
//   - source ∈ {route | status | range | fallback}
//   - pattern is the rule as it was stored in the trie (may contain "*")
func (m *Mapper) Explain(status int, path string) string {
	r, src, pat := m.resolveHTTP(status, path)
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "status=%d route=%q\n", status, path)
	b.WriteString(explainLine(r, src, pat))
	return b.String()
}

// ExplainGRPC is Explain for gRPC codes.
//
//	code=UNAVAILABLE(14) method="/tasks.v1.TaskService/ListTasks"
//	kind: source=code -> NETWORK code=UNAVAILABLE
func (m *Mapper) ExplainGRPC(c codes.Code, method string) string {
	r, src, pat := m.resolveGRPC(c, method)
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "code=%s(%d) method=%q\n", strings.ToUpper(c.String()), int(c), method)
	b.WriteString(explainLine(r, src, pat))
	return b.String()
}

func explainLine(r Resolution, src, pat string) string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "kind: source=%s", src)
	if pat != "" {
		_, _ = fmt.Fprintf(&b, " pattern=%q", pat)
	}
	_, _ = fmt.Fprintf(&b, " -> %s", r.Kind)
	if r.Code != code.Empty {
		_, _ = fmt.Fprintf(&b, " code=%s", r.Code)
	}
	if r.Fixed {
		b.WriteString(" fixed")
	}
	return b.String()
}
