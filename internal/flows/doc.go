// Package flows contains the orchestrators behind every Client operation.
//
// Each Run function validates its input, calls the identity provider through
// the injected [Deps], and commits the outcome to the session store as one
// transaction. The transaction is always finished, so the busy flag is
// released on success, failure and panic alike.
//
// # Architecture boundaries
//
// Flows coordinate the session store, the identity provider, durable
// storage, metrics and audit. They do NOT own any of these; the root Client
// builds [Deps] once and keeps ownership.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Retry provider calls.
package flows
