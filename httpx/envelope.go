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

package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"dirpx.dev/reqflow/apperr"
)

// CodeOK is the envelope code of a successful response.
const CodeOK = 200

// DetailServerCode holds the envelope code of a rejected response.
const DetailServerCode = "server_code"

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Envelope is the wrapper every API response is sent in.
type Envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// DecodeEnvelope reads an envelope from r and decodes its data into out.
// out may be nil when the caller has no use for the payload.
//
// An envelope whose code is not CodeOK is a BUSINESS error carrying the
// server's message. A body that is not an envelope, or data that does not
// fit out, is an UNKNOWN error.
func DecodeEnvelope(r io.Reader, out any) error {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return apperr.NewUnknown("malformed response", apperr.WithCauseOption(err))
	}
	if env.Code != CodeOK {
		return apperr.NewBusiness(strings.TrimSpace(env.Message)).
			WithDetail(DetailServerCode, env.Code)
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.NewUnknown("malformed response data", apperr.WithCauseOption(err))
	}
	return nil
}

// errorMessage extracts the server message of an error response, if the
// body is an envelope. Only read failures are reported.
func errorMessage(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return "", err
	}
	var env Envelope
	if len(b) == 0 || json.Unmarshal(b, &env) != nil {
		return "", nil
	}
	return env.Message, nil
}
