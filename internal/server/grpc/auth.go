package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebox/internal/identity"
)

// bearerTokenFromMD returns the first "authorization: Bearer <token>" value.
func bearerTokenFromMD(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		if tok, ok := identity.BearerToken(v); ok {
			return tok, true
		}
	}
	return "", false
}

// authenticate puts the verified profile id on ctx. A call without a bearer
// token stays anonymous; a bad token is rejected.
func authenticate(ctx context.Context, v *identity.Verifier) (context.Context, error) {
	tok, ok := bearerTokenFromMD(ctx)
	if !ok {
		return ctx, nil
	}
	id, err := v.Verify(tok)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return identity.WithUserID(ctx, id), nil
}

// AuthUnary resolves bearer tokens for unary calls.
func AuthUnary(v *identity.Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, v)
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }

// AuthStream resolves bearer tokens for streaming calls.
func AuthStream(v *identity.Verifier) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, next grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), v)
		if err != nil {
			return err
		}
		return next(srv, &authedStream{ServerStream: ss, ctx: ctx})
	}
}
