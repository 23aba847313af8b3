package cache

import "github.com/goliatone/go-errors"

var (
	// ErrComputeFailed is returned when the analysis computation fails and no
	// previous entry exists to serve as a stale fallback.
	ErrComputeFailed = errors.New("analysis computation failed", errors.CategoryInternal).
			WithTextCode("COMPUTE_FAILED")

	// ErrComputeTimeout is returned to a waiter whose patience ran out. The
	// in-flight computation keeps running and still populates the cache.
	ErrComputeTimeout = errors.New("timed out waiting for in-flight computation", errors.CategoryOperation).
				WithTextCode("COMPUTE_TIMEOUT")

	// ErrBackendUnavailable marks cache-tier connectivity failures. Read and
	// write paths degrade to compute-without-caching instead of surfacing it.
	ErrBackendUnavailable = errors.New("cache backend unavailable", errors.CategoryOperation).
				WithTextCode("CACHE_BACKEND_UNAVAILABLE")
)

// IsBackendUnavailable reports whether err is a cache-tier connectivity failure.
func IsBackendUnavailable(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == ErrBackendUnavailable.TextCode
	}
	return false
}

func backendError(err error) error {
	return errors.Wrap(err, errors.CategoryOperation, ErrBackendUnavailable.Message).
		WithTextCode(ErrBackendUnavailable.TextCode)
}
