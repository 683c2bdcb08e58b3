// Package goSession keeps the client side of an authentication session: who
// is signed in, with which tokens, and which multi-step exchange (MFA or a
// one-time code) is in progress.
//
// A [Client] sequences calls into an [identity.Provider] and commits their
// outcomes to a single session state that observers can follow. Every
// operation returns a [Result] next to its error, records failures in
// State.LastError and classifies them as validation, provider or state
// errors (see [Error]). Authenticated sessions are persisted through a
// storage.KV and brought back with [Client.RestoreSession].
//
// Clients are safe for concurrent use once built with [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface: [Client], [Builder], [Config], the error
// taxonomy, metrics and audit. Flow orchestration lives in internal/flows;
// the state machine lives in package session; persistence in package storage.
// Providers live in their own packages (localidp, cognito) and depend only on
// package identity.
//
// # What this package must NOT do
//
//   - Parse or verify tokens. They are opaque here.
//   - Call the provider for input it can reject locally.
//   - Import a provider package or an exporter package.
package goSession
