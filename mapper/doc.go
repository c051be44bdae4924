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

// Package mapper provides deterministic, immutable mappings from transport
// outcomes (HTTP statuses, gRPC codes, network failures) to the reqflow
// error taxonomy (dirpx.dev/reqflow/apperr).
//
// # Overview
//
// A failed API call reaches the client in several shapes:
//
//  1. an HTTP response with a non-2xx status and, maybe, a server message;
//  2. a gRPC status error, maybe carrying google.rpc.BadRequest details;
//  3. a transport failure that never produced a response at all (refused
//     connection, DNS failure, timeout).
//
// Package mapper turns each of them into an *apperr.Error with a Kind, a
// Code and a human-facing Message, in a way that is:
//
//   - immutable: a Mapper is a snapshot, safe for concurrent reuse;
//   - overridable: callers can replace library defaults per status or code;
//   - route-aware: callers can add rules for specific URL paths or gRPC
//     methods.
//
// # Resolution model
//
// A Mapper resolves an HTTP status in the following order:
//
//  1. route rule for the status, longest-prefix-match (LPM) on the path;
//  2. per-status resolution (library default or user-adjusted);
//  3. range fallback: any other 4xx is BUSINESS, any other 5xx is UNKNOWN;
//  4. global fallback: UNKNOWN.
//
// gRPC codes follow the same order with the full method name
// ("/pkg.Service/Method") in place of the path.
//
// Route rules are segment-aware: paths are treated as "/"-separated
// segments, and "*" matches exactly one segment. For example:
//
//	WithHTTPRoute(404, "/api/tasks", mapper.Resolution{Kind: apperr.Business, Code: code.NotFound, Message: "task not found"})
//	WithHTTPRoute(403, "/api/projects/*/members", mapper.Resolution{Kind: apperr.Business})
//
// The more specific rule wins.
//
// # Diagnostics
//
// Mapper.Explain and Mapper.ExplainGRPC return a human-readable trace of how
// a status was resolved, including the tier that matched and, for route
// rules, the pattern that was used. The output is meant for logs and tests,
// not for machine parsing.
package mapper
