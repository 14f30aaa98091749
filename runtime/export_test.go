package runtime

import "time"

// SetFetchRetry overrides the retry policy of u. It must be called before u
// is registered with a store.
func SetFetchRetry(u *UserSupplementer, attempts int, delay time.Duration) {
	u.attempts = attempts
	u.retryDelay = delay
}
