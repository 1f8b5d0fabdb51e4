package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/crypto"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/apperror"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/jwt"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/obs"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger       *slog.Logger
	adminStorage storage.AdminStorage
	tokens       *jwt.Service
	metrics      *obs.Metrics
	now          func() time.Time
	// checkDummy выравнивает время ответа для неизвестного номера
	checkDummy   func(password string)
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, adminStorage storage.AdminStorage, tokens *jwt.Service, metrics *obs.Metrics) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		adminStorage: adminStorage,
		tokens:       tokens,
		metrics:      metrics,
		now:          time.Now,
		checkDummy:   crypto.CheckDummy,
	}
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация администратора по номеру телефона и паролю
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Парсим request body
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		writeError(h.logger, w, r, err)
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := validation.ValidatePhoneNumber(req.PhoneNumber); err != nil {
		writeError(h.logger, w, r, apperror.Validation("INVALID_PHONE", err.Error(), err))
		return
	}
	if req.Password == "" {
		writeError(h.logger, w, r, apperror.Validation("INVALID_PASSWORD", "password is required", nil))
		return
	}

	// Получаем администратора из БД
	admin, err := h.adminStorage.GetAdminByPhone(ctx, req.PhoneNumber)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			h.checkDummy(req.Password)
			h.logger.WarnContext(ctx, "login failed: admin not found", slog.String("ip", reqctx.ClientIP(r)))
			writeError(h.logger, w, r, apperror.Credential("invalid credentials", nil))
			return
		}
		h.logger.ErrorContext(ctx, "failed to get admin", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Проверяем пароль
	if err := crypto.CheckPassword(req.Password, admin.PasswordHash); err != nil {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("admin_id", admin.ID))
		writeError(h.logger, w, r, apperror.Credential("invalid credentials", nil))
		return
	}

	if err := checkAccount(admin); err != nil {
		h.logger.WarnContext(ctx, "login rejected", slog.String("admin_id", admin.ID), slog.String("reason", err.Message))
		writeError(h.logger, w, r, err)
		return
	}

	resp, ok := h.issue(w, r, admin)
	if !ok {
		return
	}

	// Обновляем last_login
	if err := h.adminStorage.UpdateLastLogin(ctx, admin.ID, h.now()); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "admin logged in successfully",
		slog.String("admin_id", admin.ID),
		slog.String("role", string(admin.Role)))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Выдает новую пару токенов по refresh token из заголовка Authorization
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refreshToken := reqctx.BearerToken(r)
	if refreshToken == "" {
		writeError(h.logger, w, r, apperror.Credential("refresh token is required", nil))
		return
	}

	adminID, err := h.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		reason, _ := jwt.ReasonOf(err)
		h.metrics.TokenRejected(string(reason))
		h.logger.WarnContext(ctx, "invalid refresh token", slog.String("reason", string(reason)))
		writeError(h.logger, w, r, apperror.Credential("invalid or expired refresh token", err))
		return
	}

	// Роль и статус берутся из БД: они могли измениться после выдачи токена
	admin, err := h.adminStorage.GetAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			writeError(h.logger, w, r, apperror.Credential("invalid refresh token", err))
			return
		}
		h.logger.ErrorContext(ctx, "failed to get admin", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if appErr := checkAccount(admin); appErr != nil {
		writeError(h.logger, w, r, appErr)
		return
	}

	resp, ok := h.issue(w, r, admin)
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("admin_id", admin.ID))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// issue выпускает пару токенов. false означает, что ответ с ошибкой уже отправлен.
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, admin *models.Admin) (api.TokenResponse, bool) {
	ctx := r.Context()

	accessToken, _, err := h.tokens.IssueAccessToken(admin.Identity())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return api.TokenResponse{}, false
	}

	refreshToken, _, err := h.tokens.IssueRefreshToken(admin.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return api.TokenResponse{}, false
	}

	return api.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.tokens.AccessTTL().Seconds()),
		Admin:        toAPIAdmin(admin),
	}, true
}

// checkAccount токены выдаются только активным незаблокированным администраторам
func checkAccount(admin *models.Admin) *apperror.Error {
	switch {
	case !admin.Active:
		return apperror.Credential("account is disabled", nil)
	case admin.Locked:
		return apperror.Credential("account is locked", nil)
	case !admin.Role.Valid():
		return apperror.Credential("account has no valid role", nil)
	}
	return nil
}
