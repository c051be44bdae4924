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
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshExchange returns a refresh.ExchangeFunc that POSTs the refresh
// token to refreshURL and reads the new pair from the envelope data.
//
// hc must not be a client whose transport refreshes tokens itself; a nil hc
// means http.DefaultClient.
func RefreshExchange(hc *http.Client, refreshURL string) refresh.ExchangeFunc {
	if hc == nil {
		hc = http.DefaultClient
	}
	return func(ctx context.Context, refreshToken string) (store.Tokens, error) {
		b, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
		if err != nil {
			return store.Tokens{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(b))
		if err != nil {
			return store.Tokens{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := hc.Do(req)
		if err != nil {
			return store.Tokens{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			msg, _ := errorMessage(resp.Body)
			return store.Tokens{}, fmt.Errorf("refresh rejected: status %d: %s", resp.StatusCode, msg)
		}
		var lr loginResponse
		if err := DecodeEnvelope(resp.Body, &lr); err != nil {
			return store.Tokens{}, err
		}
		return store.Tokens{Access: lr.Token, Refresh: lr.RefreshToken}, nil
	}
}
