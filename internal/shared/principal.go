package shared

import "context"

// AnonymousUserID is the user id carried by requests without a session.
const AnonymousUserID int64 = 0

// Principal identifies the caller of a request.
type Principal struct {
	UserID int64
}

// Anonymous returns the principal used for unauthenticated requests.
func Anonymous() Principal {
	return Principal{UserID: AnonymousUserID}
}

// IsAnonymous reports whether the principal carries no authenticated user.
func (p Principal) IsAnonymous() bool {
	return p.UserID == AnonymousUserID
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context, defaulting to anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return Anonymous()
	}
	return p
}
