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

// Package store persists the session credentials (access and refresh
// tokens) that the refresh coordinator and the transport glue share.
package store

import (
	"context"
	"errors"
	"sync"
)

// Fixed storage keys for the two credentials.
const (
	KeyAccess  = "token"
	KeyRefresh = "refreshToken"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Tokens is the pair of credentials of one session. Empty strings mean
// "not stored".
type Tokens struct {
	Access  string
	Refresh string
}

// TokenStore is durable client storage for Tokens.
//
// SetTokens replaces both values atomically; a reader never observes a new
// access token next to an old refresh token.
type TokenStore interface {
	Tokens(ctx context.Context) (Tokens, error)
	SetTokens(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// Memory is an in-process TokenStore. The zero value is ready to use.
type Memory struct {
	mu sync.RWMutex
	t  Tokens
}

var _ TokenStore = (*Memory)(nil)

// NewMemory returns a Memory store seeded with t.
func NewMemory(t Tokens) *Memory {
	return &Memory{t: t}
}

func (m *Memory) Tokens(context.Context) (Tokens, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t, nil
}

func (m *Memory) SetTokens(_ context.Context, t Tokens) error {
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.t = Tokens{}
	m.mu.Unlock()
	return nil
}
