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

package code

// Kind default codes
//
// Every kind has a default code that constructors in apperr attach when the
// caller does not supply a more specific one.
const (
	// Network is attached to transport-level failures: connection refused,
	// DNS failures, gateway errors, client-side timeouts.
	Network Code = "NETWORK_ERROR"

	// Validation is attached to rejected input, locally or by the server
	// (HTTP 400/422, gRPC InvalidArgument).
	Validation Code = "VALIDATION_ERROR"

	// Auth is attached to authentication failures: the caller has no valid
	// session and must sign in again.
	Auth Code = "AUTH_ERROR"

	// Permission is attached to authorization failures: the caller is known
	// but not allowed to perform the operation.
	Permission Code = "PERMISSION_ERROR"

	// Unknown is attached to failures that carried no recognizable kind.
	Unknown Code = "UNKNOWN_ERROR"
)

// Token refresh codes
//
// These refine Auth for failures of the shared credential refresh exchange.
const (
	// RefreshFailed indicates that the refresh exchange was rejected, for
	// example with "invalid_grant".
	RefreshFailed Code = "TOKEN_REFRESH_FAILED"

	// RefreshTimeout indicates that the refresh exchange did not settle
	// within the hard refresh timeout.
	RefreshTimeout Code = "TOKEN_REFRESH_TIMEOUT"

	// NoRefreshToken indicates that no refresh credential was stored, so no
	// exchange could be attempted.
	NoRefreshToken Code = "NO_REFRESH_TOKEN"

	// SessionExpired indicates that a request was still rejected as
	// unauthenticated after it had been retried with a fresh token.
	SessionExpired Code = "SESSION_EXPIRED"
)

// Transport status codes
//
// These are attached by the mapper when it normalizes HTTP and gRPC
// statuses, so that the presentation layer can pick a specific notice.
const (
	// NotFound indicates that the requested resource does not exist.
	NotFound Code = "NOT_FOUND"

	// Conflict indicates a state conflict with the server copy.
	Conflict Code = "CONFLICT"

	// RateLimited indicates that the server asked the client to slow down.
	RateLimited Code = "RATE_LIMITED"

	// ServerError indicates an unclassified server failure (HTTP 500).
	ServerError Code = "SERVER_ERROR"

	// Unavailable indicates that the server or a gateway in front of it is
	// temporarily unreachable (HTTP 502/503/504, gRPC Unavailable).
	Unavailable Code = "UNAVAILABLE"

	// Timeout indicates that the request exceeded its time budget.
	Timeout Code = "TIMEOUT"

	// Storage indicates that durable client storage failed.
	Storage Code = "STORAGE_ERROR"
)
