// Package stores provides the Redis records behind the local identity
// provider: accounts with their login aliases, one-time code challenges and
// issued sessions.
//
// # Design
//
// Code and session records are versioned, binary-encoded values with a TTL.
// Consume uses WATCH/MULTI optimistic transactions with retry on contention,
// counts failed attempts on the record itself and deletes it on success or
// exhaustion. Code comparisons are constant-time over SHA-256 hashes; the
// plaintext code never reaches Redis. Accounts are JSON; each login
// identifier is a SETNX-claimed alias pointing at the subject.
//
// # What this package must NOT do
//
//   - Generate codes, hash secrets or decide authentication outcomes.
//   - Log or expose plaintext codes or secrets.
package stores
