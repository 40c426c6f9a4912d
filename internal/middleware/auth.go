// Package middleware содержит HTTP middleware сервиса доступа к столовой.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mmeshcher/messhall-system/internal/model"
)

type contextKey string

const staffTokenKey contextKey = "staffToken"

// Authenticator проверяет предъявленный bearer-токен персонала.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*model.StaffToken, error)
}

// StaffAuth выполняет аутентификацию терминалов сканера по bearer-токену.
type StaffAuth struct {
	auth Authenticator
}

// NewStaffAuth создаёт middleware аутентификации персонала.
func NewStaffAuth(auth Authenticator) *StaffAuth {
	return &StaffAuth{auth: auth}
}

// Middleware проверяет заголовок Authorization и добавляет токен персонала
// в контекст запроса. Любая причина отказа неразличима снаружи.
func (s *StaffAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := bearerFromHeader(r)
		if bearer == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		t, err := s.auth.Authenticate(r.Context(), bearer)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), staffTokenKey, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetStaffTokenFromContext извлекает токен персонала из контекста запроса.
func GetStaffTokenFromContext(ctx context.Context) (*model.StaffToken, bool) {
	t, ok := ctx.Value(staffTokenKey).(*model.StaffToken)
	return t, ok
}

// AdminAuth проверяет статический административный токен.
type AdminAuth struct {
	token string
}

// NewAdminAuth создаёт middleware административного доступа.
func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: token}
}

// Middleware сверяет bearer-токен с административным. Пустой настроенный
// токен означает, что административный доступ выключен.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := bearerFromHeader(r)
		if a.token == "" || subtle.ConstantTimeCompare([]byte(bearer), []byte(a.token)) != 1 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
