// Package internal contains helpers private to goSession: opaque session
// ids, refresh tokens and numeric one-time codes for the local identity
// provider.
//
// # Sub-packages
//
//   - flows: pure-function flow orchestrators behind every Client operation
//   - rate: Redis-backed failed-attempt limiter
//   - stores: Redis records for accounts, code challenges and sessions
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
