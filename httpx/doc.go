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

// Package httpx is the HTTP glue of reqflow.
//
// Transport is an http.RoundTripper that deduplicates identical in-flight
// requests, injects the stored bearer token, and on 401 refreshes the
// token once through a shared refresh.Coordinator before retrying the
// request a single time. Client sits on top of it: it speaks the server's
// {code, message, data} envelope and normalizes every failure into an
// *apperr.Error through a mapper.Mapper.
package httpx
