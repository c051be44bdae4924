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

// Package code provides parsing, normalization and validation for the
// machine-readable codes carried by reqflow errors.
//
// A code is an optional, stable identifier attached to an apperr.Error in
// addition to its kind, such as "AUTH_ERROR", "TOKEN_REFRESH_TIMEOUT" or a
// numeric business code returned by the server ("40012"). Codes are meant to
// be:
//
//   - short and stable;
//   - uppercased;
//   - underscore-separated (not dash-separated);
//   - safe to log, to compare and to forward to a reporting sink.
//
// The zero value Empty means "no code". Validate rejects it, so callers that
// require a code must validate explicitly.
package code
