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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CancelReason says why a handle was cancelled by the Manager.
type CancelReason string

const (
	// ReasonSuperseded: a newer request with the same fingerprint began.
	ReasonSuperseded CancelReason = "duplicate superseded"

	// ReasonTimeout: the entry outlived the staleness threshold and was
	// swept.
	ReasonTimeout CancelReason = "timeout"

	// ReasonCleared: the Manager was cleared, usually at session teardown.
	ReasonCleared CancelReason = "cleared"
)

// ErrReleased is the cancellation cause of a handle whose request completed
// and was released. It is not a CanceledError.
var ErrReleased = errors.New("dedup: request released")

// CanceledError is the outcome observed by a request the Manager cancelled.
// It matches context.Canceled under errors.Is.
type CanceledError struct {
	Reason      CancelReason
	Fingerprint Fingerprint
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("dedup: request cancelled: %s", e.Reason)
}

// Is reports whether target is context.Canceled.
func (e *CanceledError) Is(target error) bool {
	return target == context.Canceled
}

// AsCanceled returns the *CanceledError in err's chain, if any.
func AsCanceled(err error) (*CanceledError, bool) {
	var ce *CanceledError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Handle is the cancellation handle of one request. Requests must be made
// with Handle.Context so that cancelling the handle aborts them.
type Handle struct {
	id        uuid.UUID
	fp        Fingerprint
	tracked   bool
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newHandle(parent context.Context, fp Fingerprint, tracked bool, now time.Time) *Handle {
	ctx, cancel := context.WithCancelCause(parent)
	return &Handle{
		id:        uuid.New(),
		fp:        fp,
		tracked:   tracked,
		createdAt: now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID uniquely identifies this handle, including among handles that share a
// fingerprint.
func (h *Handle) ID() uuid.UUID { return h.id }

// Fingerprint returns the fingerprint of the request.
func (h *Handle) Fingerprint() Fingerprint { return h.fp }

// Tracked reports whether the Manager tracks this request. Untracked handles
// are never superseded, swept or cleared.
func (h *Handle) Tracked() bool { return h.tracked }

// CreatedAt returns when the request began.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// Context returns the context to perform the request with.
func (h *Handle) Context() context.Context { return h.ctx }

// Done is closed once the handle is cancelled or released.
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// Reason returns the cancellation reason if the Manager cancelled this
// handle. It returns false while the handle is live, after a plain release,
// and when the parent context was cancelled.
func (h *Handle) Reason() (CancelReason, bool) {
	ce, ok := h.Canceled()
	if !ok {
		return "", false
	}
	return ce.Reason, true
}

// Canceled returns the *CanceledError this handle was cancelled with.
func (h *Handle) Canceled() (*CanceledError, bool) {
	return AsCanceled(context.Cause(h.ctx))
}

// Outcome translates an error returned by a request made with this handle.
// If the Manager cancelled the handle, the *CanceledError is returned in
// place of err, so callers see the reason instead of a bare
// context.Canceled. Otherwise err is returned unchanged.
func (h *Handle) Outcome(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := h.Canceled(); ok {
		return ce
	}
	return err
}

func (h *Handle) cancelWith(reason CancelReason) {
	h.cancel(&CanceledError{Reason: reason, Fingerprint: h.fp})
}

func (h *Handle) release() {
	h.cancel(ErrReleased)
}
