// Package session owns the client-side authentication state and the rules
// that move it from one state to the next.
//
// A [Store] holds a single [State]. Callers change it only by applying
// [Event] values; each [Store.Apply] call is one atomic commit that either
// lands completely or not at all, and observers see commits in order.
//
// # Invariants
//
// Every committed state satisfies [CheckInvariants]:
//
//   - Authenticated holds exactly when both User and Tokens are present.
//   - A pending challenge implies the session is not authenticated.
//   - Tokens are complete (access, refresh and id) or absent.
//
// # Operations
//
// Long-running operations bracket their work with [Store.Begin] and one of
// [Txn.End], [Txn.Fail] or [Txn.Release]. Busy is derived from the number of
// open transactions, so concurrent operations never clear each other's flag.
//
// # What this package must NOT do
//
//   - Call an identity provider or touch durable storage.
//   - Import goSession (no upward imports).
package session
