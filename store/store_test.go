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

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]TokenStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), SQLiteConfig{Path: filepath.Join(t.TempDir(), "creds.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return map[string]TokenStore{
		"memory": &Memory{},
		"sqlite": s,
	}
}

func TestTokenStore_Contract(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.Tokens(ctx)
			require.NoError(t, err)
			assert.Equal(t, Tokens{}, got, "fresh store must be empty")

			require.NoError(t, s.SetTokens(ctx, Tokens{Access: "a1", Refresh: "r1"}))
			require.NoError(t, s.SetTokens(ctx, Tokens{Access: "a2", Refresh: "r2"}))
			got, err = s.Tokens(ctx)
			require.NoError(t, err)
			assert.Equal(t, Tokens{Access: "a2", Refresh: "r2"}, got)

			require.NoError(t, s.SetTokens(ctx, Tokens{Access: "a3"}))
			got, err = s.Tokens(ctx)
			require.NoError(t, err)
			assert.Equal(t, Tokens{Access: "a3"}, got, "empty value must remove the key")

			require.NoError(t, s.Clear(ctx))
			got, err = s.Tokens(ctx)
			require.NoError(t, err)
			assert.Equal(t, Tokens{}, got)
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.db")

	s1, err := OpenSQLite(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s1.SetTokens(ctx, Tokens{Access: "a", Refresh: "r"}))
	require.NoError(t, s1.Close())

	_, err = s1.Tokens(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	s2, err := OpenSQLite(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "a", Refresh: "r"}, got)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), SQLiteConfig{})
	assert.Error(t, err)
}
