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

// KindedError represents an error that already carries a kind tag from the
// closed reqflow taxonomy ("NETWORK", "VALIDATION", "AUTHENTICATION",
// "AUTHORIZATION", "BUSINESS", "UNKNOWN").
//
// Classification passes such errors through with their kind preserved. A
// value that does not parse as a known kind is treated as untagged and the
// error is wrapped as unknown.
type KindedError interface {
	error

	// ErrorKind returns the kind tag of the error.
	ErrorKind() string
}

// CodedError represents an error that carries an optional machine code in
// addition to its kind, such as "AUTH_ERROR" or a numeric business code
// returned by the server.
//
// Implementations MAY return an empty string when no code applies.
type CodedError interface {
	error

	// ErrorCode returns the machine-readable code, or "".
	ErrorCode() string
}

// DetailedError represents an error that exposes zero or more structured
// details. This is especially useful for validation failures where several
// fields are rejected at once.
//
// Implementations SHOULD return a slice that the caller may iterate without
// synchronization. Returning nil means "no extra details".
type DetailedError interface {
	error

	// ErrorDetails returns structured details of the error. May return nil.
	ErrorDetails() []Detail
}
