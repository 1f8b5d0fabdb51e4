package middleware

import (
	"log/slog"
	"net/http"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/jwt"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/obs"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
)

// OptionalAuth создает middleware, которое проверяет Bearer токен, если он передан,
// и кладет identity в контекст. Запрос никогда не прерывается: без identity вызов
// остается анонимным, а решение о допуске принимает перехватчик аудита.
func OptionalAuth(logger *slog.Logger, tokens *jwt.Service, metrics *obs.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := reqctx.BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := tokens.Verify(token)
			if err != nil {
				reason, _ := jwt.ReasonOf(err)
				metrics.TokenRejected(string(reason))

				// Подделка подписи или алгоритма выглядит как атака, истечение срока - нет
				if reason.Suspicious() {
					logger.WarnContext(r.Context(), "Suspicious access token",
						slog.String("reason", string(reason)),
						slog.String("ip", reqctx.ClientIP(r)),
						slog.String("path", r.URL.Path),
					)
				} else {
					logger.DebugContext(r.Context(), "Access token rejected", slog.String("reason", string(reason)))
				}

				next.ServeHTTP(w, r)
				return
			}

			logger.DebugContext(r.Context(), "Admin authenticated",
				slog.String("admin_id", identity.SubjectID),
				slog.String("role", string(identity.Role)),
			)

			// Передаем запрос дальше с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(reqctx.WithIdentity(r.Context(), identity)))
		})
	}
}
