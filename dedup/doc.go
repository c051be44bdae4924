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

// Package dedup suppresses duplicate in-flight requests.
//
// Every outbound request is described by a Descriptor and reduced to a
// Fingerprint. The Manager keeps at most one in-flight entry per
// fingerprint: when a newer identical request begins, the older one is
// cancelled with reason ReasonSuperseded and the newer one proceeds.
//
// Cancellation is an outcome, not a failure. A superseded request observes a
// *CanceledError through its Handle, which matches context.Canceled under
// errors.Is but carries the reason, so callers never mistake it for a
// server or network error.
//
// Which requests are tracked is a policy decision: by default only safe
// methods (GET, HEAD, OPTIONS) are, and route rules can opt mutating
// requests in or safe ones out.
package dedup
