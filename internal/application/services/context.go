package services

import (
	"context"
	"net/http"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	inboundKey
)

// RequestMeta identifies who triggered a service call. It ends up on every
// Message the call writes.
type RequestMeta struct {
	ClientIP string
	UserID   string
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey, meta)
}

func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(metaKey).(RequestMeta)
	return meta
}

// WithInboundRequest attaches the gateway's callback request so gateways can
// read notification payloads from it.
func WithInboundRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, inboundKey, r)
}

func InboundRequest(ctx context.Context) *http.Request {
	r, _ := ctx.Value(inboundKey).(*http.Request)
	return r
}
