package domain

import "context"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	RequestID string `json:"requestId"`
}

// Authenticated reports whether a user identity is attached.
func (rc RequestContext) Authenticated() bool {
	return rc.UserID != ""
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx so services never read identity from
// ambient state.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext stored in ctx, or the zero value.
func FromContext(ctx context.Context) RequestContext {
	if ctx == nil {
		return RequestContext{}
	}
	rc, _ := ctx.Value(requestContextKey{}).(RequestContext)
	return rc
}
