// Package handle provides Safe, the single owner of one opaque native handle.
//
// A Safe calls its release function exactly once: on the first Release, or,
// if Release never happens, when the Safe becomes unreachable. The owner must
// keep the Safe reachable (runtime.KeepAlive) for the duration of every native
// call that uses its handle, otherwise the cleanup may run while the call is
// in flight.
package handle

import (
	"runtime"
	"sync"

	"github.com/reglet-dev/native-counter/domain/entities"
)

// ReleaseFunc destroys a native handle. It is called at most once per handle.
type ReleaseFunc func(raw entities.NativeHandle) error

// ErrorHandler receives release errors from the cleanup path, which has no
// caller to return them to.
type ErrorHandler func(raw entities.NativeHandle, err error)

// Safe owns one NativeHandle.
type Safe struct {
	mu       sync.Mutex
	raw      entities.NativeHandle
	release  ReleaseFunc
	cleanup  runtime.Cleanup
	released bool
}

// Option configures a Safe.
type Option func(*config)

type config struct {
	onCleanupError ErrorHandler
	onLeak         func(raw entities.NativeHandle)
}

// WithCleanupErrorHandler sets the handler for errors returned by release on
// the cleanup path.
func WithCleanupErrorHandler(fn ErrorHandler) Option {
	return func(c *config) {
		c.onCleanupError = fn
	}
}

// WithLeakHandler sets a function called on the cleanup path, before
// release, for a handle whose owner never called Release.
func WithLeakHandler(fn func(raw entities.NativeHandle)) Option {
	return func(c *config) {
		c.onLeak = fn
	}
}

type cleanupArg struct {
	raw     entities.NativeHandle
	release ReleaseFunc
	onError ErrorHandler
	onLeak  func(raw entities.NativeHandle)
}

// New takes ownership of raw. A null raw produces an invalid Safe that never
// calls release.
func New(raw entities.NativeHandle, release ReleaseFunc, opts ...Option) *Safe {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Safe{raw: raw, release: release}
	if !raw.IsNull() {
		// The argument must not reference s, or s would never become unreachable.
		s.cleanup = runtime.AddCleanup(s, releaseOnCleanup, cleanupArg{
			raw:     raw,
			release: release,
			onError: cfg.onCleanupError,
			onLeak:  cfg.onLeak,
		})
	}
	return s
}

func releaseOnCleanup(arg cleanupArg) {
	if arg.onLeak != nil {
		arg.onLeak(arg.raw)
	}
	if err := arg.release(arg.raw); err != nil && arg.onError != nil {
		arg.onError(arg.raw, err)
	}
}

// IsInvalid reports whether the stored handle is the null sentinel. This is
// true for a Safe built from a null handle and for a released Safe.
func (s *Safe) IsInvalid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw.IsNull()
}

// Released reports whether Release destroyed a handle.
func (s *Safe) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Raw returns the stored handle, or NullHandle once released. The value must
// not outlive the owner's next call to Release.
func (s *Safe) Raw() entities.NativeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Release destroys the handle if it is still valid and invalidates the Safe.
// Subsequent calls are no-ops returning nil. The handle is invalidated even
// when release returns an error; the native side has consumed it either way.
func (s *Safe) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw.IsNull() {
		return nil
	}

	raw := s.raw
	s.raw = entities.NullHandle
	s.released = true
	s.cleanup.Stop()

	return s.release(raw)
}
