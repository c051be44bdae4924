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

package dedup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"
)

// Descriptor identifies a request for deduplication purposes.
type Descriptor struct {
	// Method is the HTTP method or, for gRPC, the full method name.
	Method string

	// URL is the request URL or path. A query string on URL is merged into
	// Params before fingerprinting.
	URL string

	// Params are the query parameters.
	Params url.Values

	// Body is the request payload: nil, []byte, string, json.RawMessage, a
	// proto.Message, or any value encoding/json can marshal.
	Body any
}

// Fingerprint is the canonical key of a Descriptor: a hex SHA-256 digest of
// its normalized method, URL, params and body.
type Fingerprint string

// Short returns the first 12 hex characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// FingerprintOf derives the fingerprint of d.
//
// Normalization rules:
//   - the method is trimmed and upper-cased (gRPC method names, which start
//     with '/', are kept as is);
//   - the query string of URL is merged into Params, and parameter values
//     are sorted per key;
//   - JSON bodies are decoded and re-encoded, so key order and whitespace
//     do not matter; proto.Message bodies use deterministic marshalling.
//
// Identical inputs always produce identical fingerprints.
func FingerprintOf(d Descriptor) Fingerprint {
	method := strings.TrimSpace(d.Method)
	if !strings.HasPrefix(method, "/") {
		method = strings.ToUpper(method)
	}
	path, params := splitURL(d.URL, d.Params)

	h := sha256.New()
	for _, part := range [...]string{method, path, params, canonicalBody(d.Body)} {
		// length-prefix each part so that boundaries cannot shift
		_, _ = fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

func splitURL(raw string, extra url.Values) (string, string) {
	merged := url.Values{}
	path := strings.TrimSpace(raw)
	if u, err := url.Parse(path); err == nil {
		for k, vs := range u.Query() {
			merged[k] = append(merged[k], vs...)
		}
		u.RawQuery = ""
		u.Fragment = ""
		path = u.String()
	}
	for k, vs := range extra {
		merged[k] = append(merged[k], vs...)
	}
	for k := range merged {
		vs := append([]string(nil), merged[k]...)
		sort.Strings(vs)
		merged[k] = vs
	}
	// Encode sorts by key
	return path, merged.Encode()
}

func canonicalBody(body any) string {
	switch b := body.(type) {
	case nil:
		return "nil"
	case proto.Message:
		out, err := proto.MarshalOptions{Deterministic: true}.Marshal(b)
		if err != nil {
			return "go:" + fmt.Sprintf("%#v", b)
		}
		return "proto:" + string(proto.MessageName(b)) + ":" + hex.EncodeToString(out)
	case []byte:
		return canonicalRaw(b)
	case json.RawMessage:
		return canonicalRaw(b)
	case string:
		return canonicalRaw([]byte(b))
	}

	out, err := json.Marshal(body)
	if err != nil {
		return "go:" + fmt.Sprintf("%#v", body)
	}
	return canonicalRaw(out)
}

// canonicalRaw re-encodes JSON so that structs, maps and raw bytes carrying
// the same document agree. Non-JSON payloads are kept verbatim.
func canonicalRaw(b []byte) string {
	if len(bytes.TrimSpace(b)) == 0 {
		return "nil"
	}
	if !json.Valid(b) {
		return "raw:" + string(b)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "raw:" + string(b)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "raw:" + string(b)
	}
	return "json:" + string(out)
}
