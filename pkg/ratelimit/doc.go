/*
Package ratelimit provides rate limiting primitives for metricbus.

The bus never blocks on a hot path, so the only limiter it needs is a
non-blocking token bucket (package bucket). It throttles diagnostics that
could otherwise flood the log when a report pool stays exhausted or an
executor keeps rejecting work:

	warn, _ := bucket.New(bucket.Every(time.Second), 5)
	if warn.Allow() {
		logger.Warn("report pool exhausted, dropping sample")
	}
*/
package ratelimit
