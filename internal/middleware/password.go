package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHeader — заголовок с общим паролем.
const PasswordHeader = "password"

// multipart-поля до 1 МБ держим в памяти, остальное уходит во временные файлы
const formMemory = 1 << 20

// PasswordGuard закрывает изменяющие маршруты общим паролем.
// В памяти хранится только bcrypt-хеш.
type PasswordGuard struct {
	hash []byte
}

// NewPasswordGuard хеширует пароль с заданной стоимостью bcrypt.
func NewPasswordGuard(password string, cost int) (*PasswordGuard, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordGuard{hash: hash}, nil
}

// Check сравнивает пароль с хешем.
func (g *PasswordGuard) Check(password string) bool {
	if password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
}

// Require пропускает запрос, если он авторизован cookie сессии либо пароль
// передан в заголовке password (для multipart — ещё и в поле формы password).
// Иначе отвечает 403 до какой-либо обработки.
func (g *PasswordGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsAuthorized(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}
		if g.Check(passwordFrom(r)) {
			next.ServeHTTP(w, r)
			return
		}
		sugar.Warnw("Forbidden: wrong or missing password", "method", r.Method, "uri", r.RequestURI)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Forbidden: wrong password"})
	})
}

func passwordFrom(r *http.Request) string {
	if p := r.Header.Get(PasswordHeader); p != "" {
		return p
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(formMemory); err != nil {
			return ""
		}
		return r.PostFormValue(PasswordHeader)
	}
	return ""
}
