package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/authkit-go/authkit"
)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Engine resolves session tokens to users. Required.
	Engine *authkit.Engine

	// RequireAuth when true rejects requests without a valid session.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of full method names ("/pkg.Service/Method")
	// that skip the auth requirement. Only consulted when RequireAuth is
	// true.
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all
// methods.
func DefaultInterceptorConfig(engine *authkit.Engine) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Engine:        engine,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(engine *authkit.Engine, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(engine)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests
// through while still resolving tokens when present.
func OptionalAuthConfig(engine *authkit.Engine) *InterceptorConfig {
	config := DefaultInterceptorConfig(engine)
	config.RequireAuth = false
	return config
}

func (c *InterceptorConfig) ensureDefaults() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// authenticate resolves the session token in the incoming metadata. An
// absent or invalid token yields an empty user id; storage faults surface
// as Internal so they are not mistaken for bad credentials.
func (c *InterceptorConfig) authenticate(ctx context.Context) (string, error) {
	token := SessionTokenFromContext(ctx, c.Config)
	if token == "" {
		return "", nil
	}
	sess, err := c.Engine.ValidateSessionToken(ctx, token)
	if err != nil {
		if authkit.IsStorageError(err) {
			return "", status.Error(codes.Internal, "session lookup failed")
		}
		return "", nil
	}
	return sess.UserID, nil
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that validates the
// session token metadata and stores the resolved user id on the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.ensureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userID, err := config.authenticate(ctx)
		if err != nil {
			return nil, err
		}

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && userID == "" {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}

		if userID != "" {
			ctx = WithUserID(ctx, userID)
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns the stream-side equivalent of
// UnaryAuthInterceptor.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.ensureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		userID, err := config.authenticate(ss.Context())
		if err != nil {
			return err
		}

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && userID == "" {
			return status.Error(codes.Unauthenticated, "authentication required")
		}

		if userID != "" {
			ss = &authedStream{ServerStream: ss, ctx: WithUserID(ss.Context(), userID)}
		}
		return handler(srv, ss)
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }
