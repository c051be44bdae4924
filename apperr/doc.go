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

// Package apperr defines the closed error taxonomy of reqflow.
//
// Every terminal failure that reaches the user is an *Error tagged with one
// Kind from a fixed set:
//
//	NETWORK         transport failures (unreachable server, DNS, timeouts)
//	VALIDATION      rejected input
//	AUTHENTICATION  no valid session; the user must sign in again
//	AUTHORIZATION   signed in, but not allowed
//	BUSINESS        the server refused the operation for a domain reason
//	UNKNOWN         anything that carried no recognizable kind
//
// Kind is a tagged variant, not a type hierarchy: adding a kind means adding
// a constant here and a row to every dispatch table, and the tests of those
// tables fail until that happens.
//
// Classify is the single entry point that turns an arbitrary error into an
// *Error. It passes through errors that already carry a kind (an *Error in
// the chain, or any apis.KindedError) and wraps everything else as UNKNOWN,
// preserving the original message in Details["original"].
//
// Errors are values: the WithX helpers return shallow copies, so an *Error can
// be shared between goroutines (for example, every joiner of a failed token
// refresh receives the same value) without synchronization.
package apperr
