// Package reports defines the metric categories the daemon ships with and
// the producers that sample them.
//
// Producers keep one report and overwrite it on every sample, so both
// categories must be registered with bus.PooledDispatch, which copies the
// report before returning.
package reports
