package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/apperror"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

// Заголовки с остатком квоты
const (
	HeaderRemainingMinute = "X-RateLimit-Remaining-Minute"
	HeaderRemainingHour   = "X-RateLimit-Remaining-Hour"
)

// ReasonMalformedBody причина отклонения неразбираемого тела запроса
const ReasonMalformedBody = "MALFORMED_BODY"

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}

// writeError переводит ошибку в HTTP ответ. Неизвестные ошибки скрываются за 500.
func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		var rejection *validation.RejectionError
		if errors.As(err, &rejection) {
			appErr = apperror.Validation(string(rejection.Reason), rejection.Reason.Message(), err)
		} else {
			logger.ErrorContext(r.Context(), "request failed", slog.Any("error", err))
			sendError(logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	resp := api.ErrorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
		Reason:  appErr.Reason,
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperror.KindCredential:
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Bearer realm="insights"`)
	case apperror.KindAdmission:
		status = http.StatusForbidden
		if appErr.Code == apperror.CodeRateLimited {
			status = http.StatusTooManyRequests
			remMin, remHour := appErr.RemainingMinute, appErr.RemainingHour
			resp.RemainingMinute = &remMin
			resp.RemainingHour = &remHour
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(appErr.RetryAfter)))
			w.Header().Set(HeaderRemainingMinute, strconv.Itoa(remMin))
			w.Header().Set(HeaderRemainingHour, strconv.Itoa(remHour))
		}
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindUpstream:
		status = http.StatusBadGateway
		logger.ErrorContext(r.Context(), "upstream failure", slog.Any("error", err))
	}

	sendJSON(logger, w, resp, status)
}

// retryAfterSeconds округляет вверх, минимум одна секунда
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// decodeJSON разбирает тело запроса. Ошибка разбора становится ошибкой валидации,
// чтобы попасть в журнал аудита так же, как небезопасный ввод.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Validation(ReasonMalformedBody, "invalid request body", err)
	}
	return nil
}

// parseLimit разбирает параметр limit. Пустое значение означает значение по умолчанию.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperror.Validation("INVALID_LIMIT", "limit must be a non-negative integer", err)
	}
	return limit, nil
}

func toAPIAdmin(a *models.Admin) api.Admin {
	return api.Admin{
		ID:          a.ID,
		Name:        a.Name,
		PhoneNumber: a.PhoneNumber,
		Role:        string(a.Role),
	}
}

func toAPIConversation(c *models.Conversation) api.Conversation {
	return api.Conversation{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: c.MessageCount,
		TotalTokens:  c.TotalTokens,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toAPIMessage(m *models.Message) api.Message {
	return api.Message{
		ID:         m.ID,
		Role:       string(m.Role),
		Content:    m.Content,
		TokensUsed: m.TokensUsed,
		CreatedAt:  m.CreatedAt,
	}
}

func toAPIAuditEntry(e *models.AuditEntry) api.AuditEntry {
	return api.AuditEntry{
		ID:               e.ID,
		Timestamp:        e.Timestamp,
		AdminID:          e.AdminID,
		Action:           string(e.Action),
		ResourceID:       e.ResourceID,
		Details:          e.Details,
		IPAddress:        e.IPAddress,
		UserAgent:        e.UserAgent,
		Outcome:          string(e.Outcome),
		CorrelationID:    e.CorrelationID,
		ProcessingTimeMs: e.ProcessingTimeMs,
	}
}

func toAPIIPRule(r *models.IPRule) api.IPRule {
	return api.IPRule{CIDR: r.CIDR, Note: r.Note, CreatedAt: r.CreatedAt}
}
