// Package reqctx carries per-request identifiers through context.Context.
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

type Data struct {
	RequestID string
	UserID    uint
}

func With(ctx context.Context, d *Data) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

func Get(ctx context.Context) *Data {
	if ctx == nil {
		return nil
	}
	d, _ := ctx.Value(ctxKey{}).(*Data)
	return d
}

// RequestID returns the request id stored in ctx, or a fresh one.
func RequestID(ctx context.Context) string {
	if d := Get(ctx); d != nil && d.RequestID != "" {
		return d.RequestID
	}
	return uuid.NewString()
}
