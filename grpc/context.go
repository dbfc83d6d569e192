// Package grpc validates session credentials carried in gRPC metadata and
// exposes the resolved user to service handlers.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	// DefaultMetadataKeySessionToken is the gRPC metadata key clients put
	// their session credential under.
	DefaultMetadataKeySessionToken = "x-session-token"

	// DefaultMetadataKeyUserID is the metadata key used when forwarding an
	// already-resolved user id to a downstream service.
	DefaultMetadataKeyUserID = "x-user-id"
)

// Config holds the metadata key configuration.
type Config struct {
	// MetadataKeySessionToken is the key the session credential is read
	// from. Defaults to "x-session-token".
	MetadataKeySessionToken string

	// MetadataKeyUserID is the key used for forwarding resolved user ids
	// between services. Defaults to "x-user-id".
	MetadataKeyUserID string
}

func DefaultConfig() *Config {
	return &Config{
		MetadataKeySessionToken: DefaultMetadataKeySessionToken,
		MetadataKeyUserID:       DefaultMetadataKeyUserID,
	}
}

func (c *Config) EnsureDefaults() {
	if c.MetadataKeySessionToken == "" {
		c.MetadataKeySessionToken = DefaultMetadataKeySessionToken
	}
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
}

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id. The
// interceptors call this after validating the session token.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated user id set by the
// interceptor, or empty when the request was unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// IsAuthenticated reports whether the context carries an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// SessionTokenFromContext extracts the raw session credential from
// incoming metadata. Returns empty if none was sent.
func SessionTokenFromContext(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeySessionToken); len(values) > 0 {
		return values[0]
	}
	return ""
}

// SessionTokenToOutgoingContext attaches a session credential to outgoing
// metadata so the next hop can authenticate the call.
func SessionTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeySessionToken, token)
}

// UserIDToOutgoingContext forwards an already-resolved user id downstream.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyUserID, userID)
}
