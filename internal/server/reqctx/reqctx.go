// Package reqctx хранит данные запроса в context.Context вместо глобального состояния.
// Значения живут ровно столько, сколько контекст конкретного вызова.
package reqctx

import (
	"context"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// MaxUserAgentLen максимальная длина User-Agent, сохраняемая в аудите
const MaxUserAgentLen = 500

// MaxIPLen максимальная длина текстовой записи IPv6 адреса
const MaxIPLen = 45

// contextKey тип для ключей контекста
type contextKey string

const (
	// identityKey ключ для проверенной identity
	identityKey contextKey = "identity"
	// scopeKey ключ для области запроса (correlation id, admin id, ip)
	scopeKey contextKey = "scope"
)

// Scope данные, привязанные к одному перехваченному вызову
type Scope struct {
	CorrelationID string
	AdminID       string
	IP            string
}

// WithIdentity кладет identity, проверенную по токену, в контекст
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom извлекает identity из контекста
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	if !ok || identity.IsZero() {
		return models.Identity{}, false
	}
	return identity, true
}

// WithScope кладет область запроса в контекст
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFrom извлекает область запроса из контекста
func ScopeFrom(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}

// ClientIP извлекает IP адрес клиента из запроса
// Порядок: первый адрес X-Forwarded-For, затем X-Real-IP, затем адрес соединения.
// Значение заголовка принимается только если это корректный IP, иначе проверяется следующий источник.
func ClientIP(r *http.Request) string {
	// Проверяем X-Forwarded-For (для прокси/load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := parseIP(first); ok {
			return ip
		}
	}

	// Проверяем X-Real-IP
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}

	// Используем RemoteAddr без порта
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseIP(host); ok {
		return ip
	}
	return Truncate(host, MaxIPLen)
}

// parseIP возвращает каноническую запись адреса
func parseIP(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxIPLen {
		return "", false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}

// UserAgent возвращает User-Agent, обрезанный до MaxUserAgentLen символов
func UserAgent(r *http.Request) string {
	return Truncate(r.UserAgent(), MaxUserAgentLen)
}

// Truncate обрезает строку до n символов, не разрывая UTF-8 последовательности
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// BearerToken извлекает токен из заголовка Authorization формата "Bearer <token>".
// Пустая строка означает, что токен не передан или формат неверный.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
