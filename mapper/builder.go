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
	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"google.golang.org/grpc/codes"
)

// Resolution is what a transport outcome maps to.
type Resolution struct {
	// Kind is the taxonomy tag. Required.
	Kind apperr.Kind

	// Code is the machine code attached to the resulting error. May be empty.
	Code code.Code

	// Message is the notice used when the server sent none. Empty means the
	// default notice for Kind.
	Message string

	// Fixed makes Message replace the server's message.
	Fixed bool
}

type routeRule struct {
	// prefix is the raw, "/"-separated path or method prefix (may contain
	// "*"). It is validated when the per-status trie is built.
	prefix string
	res    Resolution
}

type builder struct {
	httpStatus map[int]Resolution
	grpcCode   map[codes.Code]Resolution

	httpRoutes map[int][]routeRule
	grpcRoutes map[codes.Code][]routeRule

	fallback Resolution
}

func newBuilder() *builder {
	return &builder{
		httpStatus: make(map[int]Resolution, len(defaultHTTP)),
		grpcCode:   make(map[codes.Code]Resolution, len(defaultGRPC)),
		httpRoutes: make(map[int][]routeRule),
		grpcRoutes: make(map[codes.Code][]routeRule),
		fallback:   Resolution{Kind: apperr.Unknown, Code: code.Unknown},
	}
}

// freeze copies src so the built Mapper never observes later changes to
// builder or caller-owned maps.
func freeze[K comparable, V any](src map[K]V) map[K]V {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
