// Package storage persists the durable subset of a session (profile and
// tokens) to a key-value store and reads it back at startup.
//
// Pending challenges, the busy flag and the last error are request scoped
// and never reach storage. Corrupt or partial records load as "no session".
package storage
