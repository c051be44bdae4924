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
	"errors"

	"dirpx.dev/reqflow/apis"
	"dirpx.dev/reqflow/code"
)

// DetailOriginal is the Details key under which Classify preserves the
// message of an error it could not recognise.
const DetailOriginal = "original"

// DetailFields is the Details key under which Classify stores structured
// details exposed through apis.DetailedError.
const DetailFields = "fields"

// DetailKind is the Details key under which Classify keeps the kind of an
// *Error whose Kind is outside the taxonomy.
const DetailKind = "kind"

// Classify normalises err into an *Error.
//
// Rules, in order:
//   - nil stays nil;
//   - an *Error anywhere in the chain is returned as is, unless its Kind is
//     not a known Kind: then a copy of kind UNKNOWN is returned, keeping the
//     message, code, and cause, with the offending kind in Details[DetailKind];
//   - an apis.KindedError anywhere in the chain whose ErrorKind parses to a
//     known Kind is converted, keeping its code, details and the original
//     error as Cause;
//   - anything else becomes UNKNOWN with the original message preserved in
//     Details[DetailOriginal].
//
// Classify does not inspect transport failures (status codes, net.Error).
// The mapper package turns those into kinded errors first.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		if ae.Kind.Valid() {
			return ae
		}
		return asUnknown(ae)
	}

	var ke apis.KindedError
	if errors.As(err, &ke) {
		if k, perr := ParseKind(ke.ErrorKind()); perr == nil && k != "" {
			return fromKinded(k, ke, err)
		}
	}

	return NewUnknown("",
		WithDetailOption(DetailOriginal, err.Error()),
		WithCauseOption(err),
	)
}

func asUnknown(ae *Error) *Error {
	e := ae.WithDetail(DetailKind, string(ae.Kind))
	e.Kind = Unknown
	if e.Code == code.Empty {
		e.Code = defaultCodes[Unknown]
	}
	if e.Message == "" {
		e.Message = defaultMessages[Unknown]
	}
	return e
}

func fromKinded(k Kind, ke apis.KindedError, orig error) *Error {
	e := &Error{Kind: k, Message: ke.Error(), Cause: orig}
	if e.Message == "" {
		e.Message = defaultMessages[k]
	}

	var ce apis.CodedError
	if errors.As(orig, &ce) {
		if c, err := code.Parse(ce.ErrorCode()); err == nil {
			e.Code = c
		}
	}
	if e.Code == code.Empty {
		e.Code = defaultCodes[k]
	}

	var de apis.DetailedError
	if errors.As(orig, &de) {
		if ds := de.ErrorDetails(); len(ds) > 0 {
			e = e.WithDetail(DetailFields, ds)
		}
	}
	return e
}

// KindOf reports the kind err would classify as. A nil error yields "".
func KindOf(err error) Kind {
	if e := Classify(err); e != nil {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err classifies as kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
