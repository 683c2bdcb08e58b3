// Package identity defines the capability contract between goSession and an
// identity provider.
//
// The contract is deliberately narrow: registration, confirmation, password
// and one-time-code authentication, password reset, and session
// invalidation. Providers report failures by wrapping the sentinel errors in
// this package so the orchestration layer can classify them without knowing
// which backend produced them.
//
// # Implementations
//
//   - github.com/MrEthical07/goSession/localidp: Redis-backed in-process provider.
//   - github.com/MrEthical07/goSession/cognito: AWS Cognito user pools.
package identity
