package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/authkit-go/authkit"
	"github.com/authkit-go/authkit/stores"
)

func newTestEngine(t *testing.T) *authkit.Engine {
	t.Helper()
	return authkit.New(stores.NewMemoryAdapter(), authkit.Config{Secret: "test-secret"})
}

func loggedInContext(t *testing.T, engine *authkit.Engine) (context.Context, string) {
	t.Helper()
	user, err := engine.Adapter.CreateUser(context.Background(), &authkit.User{Email: "grpc@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := engine.IssueSessionToken(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	md := metadata.Pairs(DefaultMetadataKeySessionToken, token)
	return metadata.NewIncomingContext(context.Background(), md), user.ID
}

func TestUnaryInterceptor_NoToken(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(newTestEngine(t)))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestUnaryInterceptor_ValidToken(t *testing.T) {
	engine := newTestEngine(t)
	ctx, userID := loggedInContext(t, engine)

	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(engine))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	called := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		if got := UserIDFromContext(ctx); got != userID {
			t.Errorf("expected user id %q on context, got %q", userID, got)
		}
		if !IsAuthenticated(ctx) {
			t.Error("expected context to be authenticated")
		}
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler should have been called")
	}
}

func TestUnaryInterceptor_BogusToken(t *testing.T) {
	engine := newTestEngine(t)
	md := metadata.Pairs(DefaultMetadataKeySessionToken, "not-a-session")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(engine))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	if st, ok := status.FromError(err); !ok || st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated for bogus token, got %v", err)
	}
}

func TestUnaryInterceptor_RevokedToken(t *testing.T) {
	engine := newTestEngine(t)
	ctx, _ := loggedInContext(t, engine)

	token := SessionTokenFromContext(ctx, nil)
	if err := engine.RevokeSessionToken(context.Background(), token); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(engine))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	if st, ok := status.FromError(err); !ok || st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated after revocation, got %v", err)
	}
}

func TestUnaryInterceptor_PublicMethod(t *testing.T) {
	engine := newTestEngine(t)
	interceptor := UnaryAuthInterceptor(NewPublicMethodsConfig(engine, "/pkg.Svc/Public"))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Public"}

	called := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		if IsAuthenticated(ctx) {
			t.Error("expected unauthenticated context")
		}
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error for public method: %v", err)
	}
	if !called {
		t.Error("handler should have been called for public method")
	}
}

func TestUnaryInterceptor_OptionalAuth(t *testing.T) {
	engine := newTestEngine(t)
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig(engine))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	called := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error with optional auth: %v", err)
	}
	if !called {
		t.Error("handler should have been called with optional auth")
	}
}

type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context { return m.ctx }

func TestStreamInterceptor_NoToken(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(newTestEngine(t)))
	stream := &mockServerStream{ctx: context.Background()}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}

	err := interceptor(nil, stream, info, func(srv any, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	if st, ok := status.FromError(err); !ok || st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestStreamInterceptor_ValidToken(t *testing.T) {
	engine := newTestEngine(t)
	ctx, userID := loggedInContext(t, engine)
	stream := &mockServerStream{ctx: ctx}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}

	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(engine))

	called := false
	err := interceptor(nil, stream, info, func(srv any, ss grpc.ServerStream) error {
		called = true
		if got := UserIDFromContext(ss.Context()); got != userID {
			t.Errorf("expected user id %q on stream context, got %q", userID, got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler should have been called")
	}
}

func TestOutgoingContextHelpers(t *testing.T) {
	ctx := SessionTokenToOutgoingContext(context.Background(), "tok-1")
	ctx = UserIDToOutgoingContext(ctx, "user-1")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	if values := md.Get(DefaultMetadataKeySessionToken); len(values) != 1 || values[0] != "tok-1" {
		t.Errorf("expected session token in outgoing metadata, got %v", values)
	}
	if values := md.Get(DefaultMetadataKeyUserID); len(values) != 1 || values[0] != "user-1" {
		t.Errorf("expected user id in outgoing metadata, got %v", values)
	}
}
