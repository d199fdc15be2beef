package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName — имя cookie с токеном сессии.
const CookieName = "auth_token"

// SessionTTL — срок жизни сессии.
const SessionTTL = 24 * time.Hour

const sessionSubject = "admin"

type ctxKey int

const authorizedKey ctxKey = iota

// WithAuth проверяет cookie сессии и отмечает запрос как авторизованный.
// Запросы без cookie или с невалидным токеном проходят дальше анонимно.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid || claims.Subject != sessionSubject {
				sugar.Debugw("WithAuth: invalid session token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), authorizedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAuthorized сообщает, что запрос пришёл с валидной cookie сессии.
func IsAuthorized(ctx context.Context) bool {
	ok, _ := ctx.Value(authorizedKey).(bool)
	return ok
}

// SetLoginCookie выпускает токен сессии и ставит его в cookie.
func SetLoginCookie(w http.ResponseWriter, secret string) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(SessionTTL),
	})
	return nil
}

// ClearLoginCookie удаляет cookie сессии.
func ClearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
