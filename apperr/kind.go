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

package apperr

import (
	"bytes"
	"encoding"
	"errors"
	"strings"
)

// Kind is the taxonomy tag of an error. The set of valid kinds is closed;
// see Kinds.
type Kind string

const (
	// Network marks transport-level failures: the request never got a
	// usable answer from the server.
	Network Kind = "NETWORK"

	// Validation marks input rejected locally or by the server.
	Validation Kind = "VALIDATION"

	// Authentication marks the absence of a valid session.
	Authentication Kind = "AUTHENTICATION"

	// Authorization marks an authenticated caller lacking permission.
	Authorization Kind = "AUTHORIZATION"

	// Business marks a domain-level refusal by the server.
	Business Kind = "BUSINESS"

	// Unknown marks failures that carried no recognizable kind.
	Unknown Kind = "UNKNOWN"
)

var (
	// ErrKindInvalid is returned when a value is not one of the known kinds.
	ErrKindInvalid = errors.New("reqflow: invalid error kind")
)

var (
	_ encoding.TextMarshaler   = (*Kind)(nil)
	_ encoding.TextUnmarshaler = (*Kind)(nil)
)

// kinds lists every valid kind in dispatch order.
var kinds = [...]Kind{Network, Validation, Authentication, Authorization, Business, Unknown}

// Kinds returns every valid kind. The returned slice is a fresh copy.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds[:])
	return out
}

// NormalizeKind trims, uppercases and replaces '-' with '_'. It does not
// guarantee that the result is a known kind.
func NormalizeKind(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToUpper(s)
	return strings.ReplaceAll(s, "-", "_")
}

// ParseKind normalizes s and returns the matching kind, or ErrKindInvalid.
func ParseKind(s string) (Kind, error) {
	k := Kind(NormalizeKind(s))
	if !k.Valid() {
		return "", ErrKindInvalid
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the canonical string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// MarshalText implements encoding.TextMarshaler. Unknown values are rejected
// so that an invalid kind never leaves the process.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, ErrKindInvalid
	}
	return []byte(k), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(bytes.TrimSpace(text)))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
