package index

import (
	"context"
	"sync"
	"time"

	"github.com/yeseh/cortex/internal/cortexerr"
)

// categoryLocks grants per-category exclusive access via one buffered
// channel per key, acting as a mutex that supports a bounded, backed-off
// wait with a total timeout (spec.md §5: "acquire a lock keyed on the
// category path ... bounded retry with back-off and a total timeout; on
// timeout the operation returns INDEX_UPDATE_FAILED").
type categoryLocks struct {
	mu   sync.Mutex
	chs  map[string]chan struct{}
}

func newCategoryLocks() *categoryLocks {
	return &categoryLocks{chs: make(map[string]chan struct{})}
}

func (l *categoryLocks) chanFor(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.chs[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.chs[key] = ch
	}
	return ch
}

const (
	lockInitialBackoff = time.Millisecond
	lockMaxBackoff      = 100 * time.Millisecond
)

// acquire blocks until key's lock is held, ctx is cancelled, or timeout
// elapses, whichever comes first. The returned release func must be
// called exactly once to free the lock.
func (l *categoryLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	ch := l.chanFor(key)
	deadline := time.Now().Add(timeout)
	backoff := lockInitialBackoff

	for {
		select {
		case ch <- struct{}{}:
			return func() { <-ch }, nil
		default:
		}

		wait := backoff
		if remaining := time.Until(deadline); remaining <= 0 {
			return nil, cortexerr.Newf(cortexerr.IndexUpdateFailed,
				"timed out acquiring category index lock for %q after %s", key, timeout).
				WithPath(key).
				WithRemediation("retry the operation; run reindex to repair any index left behind by a prior timeout")
		} else if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, cortexerr.Wrap(cortexerr.IndexUpdateFailed,
				"context cancelled while acquiring category index lock", ctx.Err()).WithPath(key)
		case <-time.After(wait):
		}

		backoff *= 2
		if backoff > lockMaxBackoff {
			backoff = lockMaxBackoff
		}
	}
}

// withLock acquires key's lock, runs fn, and always releases before
// returning — including when fn panics.
func (l *categoryLocks) withLock(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	release, err := l.acquire(ctx, key, timeout)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
