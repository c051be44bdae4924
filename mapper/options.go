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

import "google.golang.org/grpc/codes"

// Option configures the Mapper at build time.
// All options are applied to an internal builder and then frozen into
// an immutable Mapper.
type Option func(*builder)

// WithHTTPStatus sets or replaces the resolution for an HTTP status.
func WithHTTPStatus(status int, r Resolution) Option {
	return func(b *builder) { b.httpStatus[status] = r }
}

// WithHTTPRoute adds a route rule for an HTTP status. The rule is matched
// against the request path; a more specific prefix wins. Use "*" to match a
// single segment.
func WithHTTPRoute(status int, prefix string, r Resolution) Option {
	return func(b *builder) {
		b.httpRoutes[status] = append(b.httpRoutes[status], routeRule{prefix, r})
	}
}

// WithGRPCCode sets or replaces the resolution for a gRPC code.
func WithGRPCCode(c codes.Code, r Resolution) Option {
	return func(b *builder) { b.grpcCode[c] = r }
}

// WithGRPCMethod adds a method rule for a gRPC code. The rule is matched
// against the full method name, e.g. "/tasks.v1.TaskService/CreateTask",
// so "/tasks.v1.TaskService" covers every method of the service.
func WithGRPCMethod(c codes.Code, prefix string, r Resolution) Option {
	return func(b *builder) {
		b.grpcRoutes[c] = append(b.grpcRoutes[c], routeRule{prefix, r})
	}
}

// WithFallback replaces the resolution used when nothing else matches.
func WithFallback(r Resolution) Option {
	return func(b *builder) { b.fallback = r }
}
