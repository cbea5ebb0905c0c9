// Package authctx явный контекст вызывающего пользователя.
// Проверка JWT выполняется на шлюзе; сервисы получают уже проверенную личность в заголовках.
package authctx

import (
	"context"
	"net/http"
)

// Заголовки, которые выставляет шлюз после проверки токена
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Principal пользователь, от имени которого выполняется вызов
type Principal struct {
	UserID string
	Role   string
}

type ctxKeyPrincipal struct{}

// WithPrincipal сохраняет пользователя в контексте
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, p)
}

// PrincipalFromContext возвращает пользователя, если он был установлен
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal{}).(Principal)
	return p, ok && p.UserID != ""
}

// RequireUser HTTP middleware: читает X-User-ID (и X-User-Role), при отсутствии возвращает 401
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(HeaderUserID)
		if uid == "" {
			http.Error(w, "user id is required", http.StatusUnauthorized)
			return
		}
		ctx := WithPrincipal(r.Context(), Principal{UserID: uid, Role: r.Header.Get(HeaderUserRole)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
