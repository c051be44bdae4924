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

// Package apis defines the small Go-level contracts shared by the reqflow
// packages.
//
// Lower layers (transport glue, server payload decoders, validation code in
// the application) can tag their failures with a kind, a code or structured
// details by implementing these interfaces, without importing the concrete
// apperr.Error type. The classification entry point recognizes any error that
// implements KindedError and passes it through unchanged in meaning.
//
// This package must remain lightweight: only interfaces and tiny view types.
package apis
