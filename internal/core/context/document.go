package context

import "context"

// DocumentScope names the document an operation is working on.
type DocumentScope struct {
	Kind      string
	ID        string
	Operation string
}

type documentScopeKey struct{}

// WithDocument adds DocumentScope to context.
func WithDocument(ctx context.Context, scope *DocumentScope) context.Context {
	return context.WithValue(ctx, documentScopeKey{}, scope)
}

// GetDocument returns DocumentScope from context.
func GetDocument(ctx context.Context) *DocumentScope {
	if v, ok := ctx.Value(documentScopeKey{}).(*DocumentScope); ok {
		return v
	}
	return nil
}
