// Package authkit is an authentication core for web applications,
// decoupled from any specific storage engine or web framework.
//
// The engine covers session issuance and validation, pluggable password
// hashing, double-submit CSRF protection, one-time tokens for email
// verification / password reset / org invites, and the OAuth
// authorization-code flow with declarative provider descriptors. All
// persistence goes through the Adapter contract, so any backend that can
// satisfy it (the stores package ships an in-memory one and a GORM one)
// can sit underneath.
//
// # Basic usage
//
//	adapter := stores.NewMemoryAdapter()
//	engine := authkit.New(adapter, authkit.Config{
//	    Secret:  "change-me",
//	    BaseURL: "https://example.com",
//	})
//
//	user, err := engine.Register(ctx, "jane@example.com", "Jane", "hunter2hunter2")
//	sess, err := engine.LoginWithPassword(ctx, "jane@example.com", "hunter2hunter2")
//
// The web subpackage mounts the HTTP surface (csrf, login, signup, oauth
// begin/callback, session, logout) on a gorilla/mux router; the oauth
// subpackage drives the authorization-code exchange against provider
// descriptors; the grpc subpackage propagates the authenticated user over
// gRPC metadata.
//
// Adapters must provide atomicity for UseVerificationToken: under
// concurrent consumption of the same token exactly one caller wins. The
// engine performs no locking of its own and is safe for concurrent use.
package authkit
