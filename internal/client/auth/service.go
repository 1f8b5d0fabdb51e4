// Package auth управляет сессией администратора в CLI: вход, хранение токенов
// и их автоматическое обновление.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/api"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/storage"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
	pkgapi "github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

// RefreshSkew за сколько до истечения access token обновляется заранее
const RefreshSkew = 30 * time.Second

// ErrNotAuthenticated нет действующей сессии
var ErrNotAuthenticated = errors.New("not authenticated, run 'login' first")

//go:generate moq -out api_mock.go . API

// API вызовы сервера, нужные для управления сессией
type API interface {
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
}

// Service предоставляет функции авторизации
type Service struct {
	api       API
	store     storage.SessionStorage
	logger    *slog.Logger
	now       func() time.Time
	serverURL string
}

// NewService создает сервис авторизации для сервера serverURL
func NewService(apiClient API, store storage.SessionStorage, serverURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:       apiClient,
		store:     store,
		logger:    logger,
		now:       time.Now,
		serverURL: serverURL,
	}
}

// Login выполняет аутентификацию и сохраняет сессию
func (s *Service) Login(ctx context.Context, phone, password string) (*storage.Session, error) {
	if err := validation.ValidatePhoneNumber(phone); err != nil {
		return nil, fmt.Errorf("invalid phone number: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.api.Login(ctx, pkgapi.LoginRequest{PhoneNumber: phone, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := s.sessionFrom(resp)
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Logout удаляет локальную сессию. Токены не отзываются на сервере и истекают сами.
func (s *Service) Logout(ctx context.Context) error {
	err := s.store.DeleteSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return ErrNotAuthenticated
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Session возвращает сохраненную сессию для текущего сервера
func (s *Service) Session(ctx context.Context) (*storage.Session, error) {
	session, err := s.store.GetSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	// Токены другого сервера здесь бесполезны
	if session.ServerURL != s.serverURL {
		return nil, fmt.Errorf("%w (session belongs to %s)", ErrNotAuthenticated, session.ServerURL)
	}

	return session, nil
}

// AccessToken возвращает действующий access token, при необходимости обновляя пару токенов
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return "", err
	}

	if !session.AccessExpired(s.now(), RefreshSkew) {
		return session.AccessToken, nil
	}

	session, err = s.refresh(ctx, session)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// Refresh принудительно обновляет токены (например, после 401 от сервера)
func (s *Service) Refresh(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return "", err
	}

	session, err = s.refresh(ctx, session)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

func (s *Service) refresh(ctx context.Context, session *storage.Session) (*storage.Session, error) {
	s.logger.DebugContext(ctx, "refreshing access token", slog.String("admin_id", session.AdminID))

	resp, err := s.api.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if api.IsUnauthorized(err) {
			// Refresh token истек или учетная запись заблокирована: сессия больше не годится
			if delErr := s.store.DeleteSession(ctx); delErr != nil && !errors.Is(delErr, storage.ErrSessionNotFound) {
				s.logger.WarnContext(ctx, "failed to delete stale session", slog.String("error", delErr.Error()))
			}
			return nil, fmt.Errorf("%w: session expired", ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	refreshed := s.sessionFrom(resp)
	if err := s.store.SaveSession(ctx, refreshed); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return refreshed, nil
}

func (s *Service) sessionFrom(resp *pkgapi.TokenResponse) *storage.Session {
	return &storage.Session{
		AccessExpiresAt: s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC(),
		AdminID:         resp.Admin.ID,
		Name:            resp.Admin.Name,
		PhoneNumber:     resp.Admin.PhoneNumber,
		Role:            resp.Admin.Role,
		ServerURL:       s.serverURL,
		AccessToken:     resp.AccessToken,
		RefreshToken:    resp.RefreshToken,
	}
}
