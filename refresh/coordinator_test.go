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

package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"dirpx.dev/reqflow/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type exchangerMock struct {
	mock.Mock
}

func (m *exchangerMock) Exchange(ctx context.Context, refreshToken string) (store.Tokens, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(store.Tokens), args.Error(1)
}

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Tokens(ctx context.Context) (store.Tokens, error) {
	args := m.Called(ctx)
	return args.Get(0).(store.Tokens), args.Error(1)
}

func (m *storeMock) SetTokens(ctx context.Context, t store.Tokens) error {
	return m.Called(ctx, t).Error(0)
}

func (m *storeMock) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var seed = store.Tokens{Access: "old-access", Refresh: "old-refresh"}

// joiners returns the number of callers waiting on the current flight.
func (c *Coordinator) joiners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flight == nil {
		return 0
	}
	return len(c.flight.waiters)
}

// refreshAll starts n Refresh calls and waits until all of them joined the
// flight. It returns a function collecting their results.
func refreshAll(t *testing.T, c *Coordinator, n int, ex ExchangeFunc) func() ([]string, []error) {
	t.Helper()
	tokens := make([]string, n)
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			tokens[i], errs[i] = c.Refresh(context.Background(), ex)
			return nil
		})
	}
	require.Eventually(t, func() bool { return c.joiners() == n }, 2*time.Second, time.Millisecond)
	return func() ([]string, []error) {
		_ = g.Wait()
		return tokens, errs
	}
}

func TestRefresh_JoinersShareOneExchange(t *testing.T) {
	st := store.NewMemory(seed)
	c := New(st)
	defer c.Close()

	gate := make(chan struct{})
	ex := &exchangerMock{}
	ex.On("Exchange", mock.Anything, "old-refresh").
		Run(func(mock.Arguments) { <-gate }).
		Return(store.Tokens{Access: "new-access", Refresh: "new-refresh"}, nil).
		Once()

	const n = 25
	wait := refreshAll(t, c, n, ex.Exchange)
	assert.True(t, c.IsRefreshing())
	close(gate)

	tokens, errs := wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", tokens[i])
	}
	ex.AssertNumberOfCalls(t, "Exchange", 1)

	got, _ := st.Tokens(context.Background())
	assert.Equal(t, store.Tokens{Access: "new-access", Refresh: "new-refresh"}, got)
	assert.False(t, c.IsRefreshing())
}

func TestRefresh_FailureIsSharedAndLeavesCredentials(t *testing.T) {
	st := store.NewMemory(seed)
	c := New(st)
	defer c.Close()

	gate := make(chan struct{})
	ex := &exchangerMock{}
	ex.On("Exchange", mock.Anything, "old-refresh").
		Run(func(mock.Arguments) { <-gate }).
		Return(store.Tokens{}, errors.New("invalid_grant")).
		Once()

	wait := refreshAll(t, c, 3, ex.Exchange)
	close(gate)
	_, errs := wait()

	for i, err := range errs {
		require.Error(t, err)
		assert.Same(t, errs[0], err, "joiner %d must get the identical error", i)
	}
	ae := apperr.Classify(errs[0])
	assert.Equal(t, apperr.Authentication, ae.Kind)
	assert.Equal(t, code.RefreshFailed, ae.Code)
	assert.ErrorContains(t, errs[0], "token refresh failed")
	assert.EqualError(t, errors.Unwrap(errs[0]), "invalid_grant")

	got, _ := st.Tokens(context.Background())
	assert.Equal(t, seed, got, "credentials must be untouched on failure")
	ex.AssertExpectations(t)
}

func TestRefresh_ReturnsToIdleAfterSettle(t *testing.T) {
	c := New(store.NewMemory(seed))
	defer c.Close()

	ex := &exchangerMock{}
	ex.On("Exchange", mock.Anything, "old-refresh").
		Return(store.Tokens{Access: "a1", Refresh: "r1"}, nil).Once()
	ex.On("Exchange", mock.Anything, "r1").
		Return(store.Tokens{Access: "a2"}, nil).Once()

	tok, err := c.Refresh(context.Background(), ex.Exchange)
	require.NoError(t, err)
	assert.Equal(t, "a1", tok)
	assert.False(t, c.IsRefreshing())

	tok, err = c.Refresh(context.Background(), ex.Exchange)
	require.NoError(t, err)
	assert.Equal(t, "a2", tok)
	ex.AssertExpectations(t)
}

func TestRefresh_TimeoutDiscardsLateResult(t *testing.T) {
	st := store.NewMemory(seed)
	c := New(st, WithTimeout(200*time.Millisecond))
	defer c.Close()

	gate := make(chan struct{})
	returned := make(chan struct{})
	ex := func(ctx context.Context, rt string) (store.Tokens, error) {
		defer close(returned)
		<-gate // ignores ctx on purpose
		return store.Tokens{Access: "late-access", Refresh: "late-refresh"}, nil
	}

	notified := 0
	var mu sync.Mutex
	c.afterNotify = func(int) {
		mu.Lock()
		notified++
		mu.Unlock()
	}

	wait := refreshAll(t, c, 3, ex)
	_, errs := wait()
	for _, err := range errs {
		ae := apperr.Classify(err)
		require.NotNil(t, ae)
		assert.Equal(t, apperr.Authentication, ae.Kind)
		assert.Equal(t, code.RefreshTimeout, ae.Code)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Same(t, errs[0], errs[1])
	assert.Same(t, errs[1], errs[2])

	close(gate)
	<-returned
	// let the late result reach its (unread) channel
	time.Sleep(10 * time.Millisecond)

	got, _ := st.Tokens(context.Background())
	assert.Equal(t, seed, got, "late result must not be stored")
	mu.Lock()
	assert.Equal(t, 3, notified, "late result must not notify anyone")
	mu.Unlock()
	assert.False(t, c.IsRefreshing())
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	c := New(store.NewMemory(store.Tokens{Access: "only-access"}))
	defer c.Close()

	ex := &exchangerMock{}
	_, err := c.Refresh(context.Background(), ex.Exchange)

	ae := apperr.Classify(err)
	assert.Equal(t, apperr.Authentication, ae.Kind)
	assert.Equal(t, code.NoRefreshToken, ae.Code)
	ex.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestRefresh_StorageFailureIsUnknown(t *testing.T) {
	st := &storeMock{}
	st.On("Tokens", mock.Anything).Return(seed, nil)
	st.On("SetTokens", mock.Anything, store.Tokens{Access: "a", Refresh: "r"}).Return(errors.New("disk full"))

	c := New(st)
	defer c.Close()

	ex := &exchangerMock{}
	ex.On("Exchange", mock.Anything, "old-refresh").Return(store.Tokens{Access: "a", Refresh: "r"}, nil)

	_, err := c.Refresh(context.Background(), ex.Exchange)
	ae := apperr.Classify(err)
	assert.Equal(t, apperr.Unknown, ae.Kind)
	assert.Equal(t, code.Storage, ae.Code)
	st.AssertExpectations(t)
}

func TestRefresh_EmptyAccessTokenFails(t *testing.T) {
	st := store.NewMemory(seed)
	c := New(st)
	defer c.Close()

	_, err := c.Refresh(context.Background(), func(context.Context, string) (store.Tokens, error) {
		return store.Tokens{Refresh: "r"}, nil
	})
	assert.True(t, apperr.IsKind(err, apperr.Authentication))
	got, _ := st.Tokens(context.Background())
	assert.Equal(t, seed, got)
}

func TestRefresh_CancelledJoinerDoesNotCancelFlight(t *testing.T) {
	c := New(store.NewMemory(seed))
	defer c.Close()

	gate := make(chan struct{})
	ex := &exchangerMock{}
	ex.On("Exchange", mock.Anything, "old-refresh").
		Run(func(args mock.Arguments) {
			<-gate
			assert.NoError(t, args.Get(0).(context.Context).Err(), "shared exchange must not be cancelled")
		}).
		Return(store.Tokens{Access: "new"}, nil).Once()

	wait := refreshAll(t, c, 1, ex.Exchange)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, ex.Exchange)
		errc <- err
	}()
	require.Eventually(t, func() bool { return c.joiners() == 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(gate)
	tokens, errs := wait()
	require.NoError(t, errs[0])
	assert.Equal(t, "new", tokens[0])
	ex.AssertExpectations(t)
}

func TestRefresh_NotifiesInJoinOrder(t *testing.T) {
	c := New(store.NewMemory(seed))
	defer c.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	c.afterNotify = func(seq int) {
		mu.Lock()
		order = append(order, seq)
		mu.Unlock()
	}

	gate := make(chan struct{})
	ex := func(context.Context, string) (store.Tokens, error) {
		<-gate
		return store.Tokens{Access: "new"}, nil
	}

	const n = 8
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := c.Refresh(context.Background(), ex)
			return err
		})
		require.Eventually(t, func() bool { return c.joiners() == i+1 }, time.Second, time.Millisecond)
	}
	close(gate)
	require.NoError(t, g.Wait())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
}

func TestClose_FailsFlightAndFurtherCalls(t *testing.T) {
	c := New(store.NewMemory(seed))

	ex := func(ctx context.Context, _ string) (store.Tokens, error) {
		<-ctx.Done()
		return store.Tokens{}, ctx.Err()
	}
	wait := refreshAll(t, c, 2, ex)

	require.NoError(t, c.Close())
	_, errs := wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}

	_, err := c.Refresh(context.Background(), ex)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestRefresh_NilExchange(t *testing.T) {
	c := New(store.NewMemory(seed))
	defer c.Close()

	_, err := c.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilExchange)
}
