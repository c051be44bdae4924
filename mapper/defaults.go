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

package mapper

import (
	"net/http"

	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"google.golang.org/grpc/codes"
)

// defaultHTTP defines the library's built-in resolutions for well-known HTTP
// statuses. Statuses that are not listed fall back by range.
//
// Fixed messages for 403, 404 and 500 replace whatever the server sent,
// so the user always sees the same notice for these statuses.
var defaultHTTP = map[int]Resolution{
	// 4xx: the request reached the server and was refused.
	http.StatusBadRequest:          {Kind: apperr.Validation, Code: code.Validation},
	http.StatusUnauthorized:        {Kind: apperr.Authentication, Code: code.Auth},
	http.StatusForbidden:           {Kind: apperr.Authorization, Code: code.Permission, Message: "permission denied", Fixed: true},
	http.StatusNotFound:            {Kind: apperr.Business, Code: code.NotFound, Message: "requested resource does not exist", Fixed: true},
	http.StatusRequestTimeout:      {Kind: apperr.Network, Code: code.Timeout, Message: "request timed out"},
	http.StatusConflict:            {Kind: apperr.Business, Code: code.Conflict},
	http.StatusUnprocessableEntity: {Kind: apperr.Validation, Code: code.Validation},
	http.StatusTooManyRequests:     {Kind: apperr.Business, Code: code.RateLimited, Message: "too many requests, please slow down"},

	// 5xx: the server or a gateway in front of it failed.
	http.StatusInternalServerError: {Kind: apperr.Unknown, Code: code.ServerError, Message: "server error", Fixed: true},
	http.StatusBadGateway:          {Kind: apperr.Network, Code: code.Unavailable},
	http.StatusServiceUnavailable:  {Kind: apperr.Network, Code: code.Unavailable},
	http.StatusGatewayTimeout:      {Kind: apperr.Network, Code: code.Timeout, Message: "request timed out"},
}

// defaultGRPC defines the library's built-in resolutions for gRPC codes.
// codes.OK and codes.Canceled are deliberately absent: the first is not a
// failure and the second is the caller's own doing.
var defaultGRPC = map[codes.Code]Resolution{
	codes.Unauthenticated:  {Kind: apperr.Authentication, Code: code.Auth},
	codes.PermissionDenied: {Kind: apperr.Authorization, Code: code.Permission},

	codes.InvalidArgument:    {Kind: apperr.Validation, Code: code.Validation},
	codes.OutOfRange:         {Kind: apperr.Validation, Code: code.Validation},
	codes.FailedPrecondition: {Kind: apperr.Validation, Code: code.Validation},

	codes.Unavailable:      {Kind: apperr.Network, Code: code.Unavailable},
	codes.DeadlineExceeded: {Kind: apperr.Network, Code: code.Timeout, Message: "request timed out"},

	codes.NotFound:          {Kind: apperr.Business, Code: code.NotFound},
	codes.AlreadyExists:     {Kind: apperr.Business, Code: code.Conflict},
	codes.Aborted:           {Kind: apperr.Business, Code: code.Conflict},
	codes.ResourceExhausted: {Kind: apperr.Business, Code: code.RateLimited},

	codes.Internal:      {Kind: apperr.Unknown, Code: code.ServerError},
	codes.Unknown:       {Kind: apperr.Unknown, Code: code.ServerError},
	codes.DataLoss:      {Kind: apperr.Unknown, Code: code.ServerError},
	codes.Unimplemented: {Kind: apperr.Unknown, Code: code.ServerError},
}

// rangeHTTP resolves statuses that have no explicit resolution.
func rangeHTTP(status int) (Resolution, bool) {
	switch {
	case status >= 400 && status < 500:
		return Resolution{Kind: apperr.Business}, true
	case status >= 500 && status < 600:
		return Resolution{Kind: apperr.Unknown, Code: code.ServerError}, true
	}
	return Resolution{}, false
}
