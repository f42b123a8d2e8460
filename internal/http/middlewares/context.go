package middlewares

import (
	"context"

	"github.com/dropDatabas3/storegate/internal/identity"
)

type ctxKey string

const (
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxSessionKey guarda la sesión reconstruida del cookie
	ctxSessionKey ctxKey = "session"
)

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// WithSession inyecta la sesión en el contexto (la setea el gateway).
func WithSession(ctx context.Context, sess *identity.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, sess)
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetSession obtiene la sesión del contexto.
// Retorna nil si el request no traía cookie de sesión válida.
func GetSession(ctx context.Context) *identity.Session {
	if v := ctx.Value(ctxSessionKey); v != nil {
		if s, ok := v.(*identity.Session); ok {
			return s
		}
	}
	return nil
}
