// Package rate provides a Redis-backed failed-attempt limiter.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Each
// Limiter owns one key prefix, so password attempts and code requests are
// counted independently.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure; callers report them.
//   - Be imported outside the goSession module.
package rate
