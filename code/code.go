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

import (
	"bytes"
	"encoding"
	"errors"
	"regexp"
	"strings"
)

// Code is a machine-readable error code in UPPER_SNAKE form, such as
// TOKEN_REFRESH_FAILED. Server payloads go through Parse before they become
// a Code.
type Code string

// Length bounds of a code. Two characters keep short numeric business codes
// such as "42" usable.
const (
	MinLength = 2
	MaxLength = 64
)

// codeRe accepts an uppercase letter or digit followed by 1..63 uppercase
// letters, digits or underscores. Keep the repetition bounds in sync with
// MinLength and MaxLength.
var codeRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_]{1,63}$`)

// ErrCodeInvalid reports a value that is not a well-formed code.
var ErrCodeInvalid = errors.New("reqflow: invalid code")

var (
	_ encoding.TextMarshaler   = (*Code)(nil)
	_ encoding.TextUnmarshaler = (*Code)(nil)
)

// Empty is the zero-value code, meaning "no code provided".
var Empty Code = ""

// Parse normalizes and validates s. The empty string yields Empty without
// error, because codes are optional on errors.
func Parse(s string) (Code, error) {
	s = Normalize(s)
	if s == "" {
		return Empty, nil
	}
	if err := validate(s); err != nil {
		return Empty, err
	}
	return Code(s), nil
}

// MustParse is the panic-on-error variant of Parse. The empty string panics:
// declaring an empty code constant is a programmer error.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	if c == Empty {
		panic("reqflow: empty code in MustParse")
	}
	return c
}

// Normalize brings s closer to the canonical form:
//
//   - trims surrounding spaces;
//   - uppercases the value;
//   - replaces '-', '.' and inner spaces with '_'.
//
// It does NOT guarantee that the result is valid.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)
	s = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(s)
	return s
}

// Validate checks whether c is a valid, non-empty code.
func Validate(c Code) error {
	return validate(string(c))
}

// String returns the canonical string representation of the code.
func (c Code) String() string {
	return string(c)
}

// MarshalText implements encoding.TextMarshaler. The empty code marshals to
// an empty slice so optional fields survive JSON encoding.
func (c Code) MarshalText() ([]byte, error) {
	if c == Empty {
		return []byte{}, nil
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return []byte(c), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(bytes.TrimSpace(text)))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func validate(s string) error {
	if !codeRe.MatchString(s) {
		return ErrCodeInvalid
	}
	return nil
}
