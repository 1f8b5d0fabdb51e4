package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

// Error ответ сервера с кодом состояния вне 2xx
type Error struct {
	RemainingMinute *int
	RemainingHour   *int
	Code            string
	Message         string
	Reason          string
	StatusCode      int
	RetryAfter      time.Duration
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, msg)
}

// IsUnauthorized сообщает, что сервер отклонил учетные данные или токен
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Ответ модели может занимать десятки секунд
			Timeout: 90 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL возвращает адрес сервера
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login выполняет аутентификацию администратора
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", refreshToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Health запрашивает состояние сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// Chat отправляет сообщение ассистенту
func (c *Client) Chat(ctx context.Context, token string, req api.ChatRequest) (*api.ChatResponse, error) {
	var resp api.ChatResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/admin/insights/chat", token, req, &resp); err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	return &resp, nil
}

// ListConversations возвращает диалоги администратора
func (c *Client) ListConversations(ctx context.Context, token string, limit int) (*api.ConversationListResponse, error) {
	path := "/api/v1/admin/insights/conversations" + query(url.Values{"limit": limitValue(limit)})

	var resp api.ConversationListResponse
	if err := c.doRequest(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list conversations request failed: %w", err)
	}
	return &resp, nil
}

// GetConversation возвращает диалог с сообщениями
func (c *Client) GetConversation(ctx context.Context, token, id string) (*api.ConversationHistoryResponse, error) {
	var resp api.ConversationHistoryResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/admin/insights/conversations/"+url.PathEscape(id), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get conversation request failed: %w", err)
	}
	return &resp, nil
}

// DeleteConversation удаляет диалог
func (c *Client) DeleteConversation(ctx context.Context, token, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/admin/insights/conversations/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete conversation request failed: %w", err)
	}
	return nil
}

// AuditFilter параметры выборки журнала
type AuditFilter struct {
	AdminID string
	Action  string
	Limit   int
}

// ListAudit возвращает записи журнала аудита (только SUPER_ADMIN)
func (c *Client) ListAudit(ctx context.Context, token string, filter AuditFilter) (*api.AuditListResponse, error) {
	params := url.Values{"limit": limitValue(filter.Limit)}
	if filter.AdminID != "" {
		params.Set("admin_id", filter.AdminID)
	}
	if filter.Action != "" {
		params.Set("action", filter.Action)
	}

	var resp api.AuditListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/admin/audit"+query(params), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list audit request failed: %w", err)
	}
	return &resp, nil
}

// ListIPRules возвращает список разрешенных адресов
func (c *Client) ListIPRules(ctx context.Context, token string) (*api.IPRuleListResponse, error) {
	var resp api.IPRuleListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/admin/ip-rules", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list ip rules request failed: %w", err)
	}
	return &resp, nil
}

// AddIPRule добавляет адрес или подсеть в список разрешенных
func (c *Client) AddIPRule(ctx context.Context, token string, req api.IPRuleRequest) (*api.IPRule, error) {
	var resp api.IPRule
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/admin/ip-rules", token, req, &resp); err != nil {
		return nil, fmt.Errorf("add ip rule request failed: %w", err)
	}
	return &resp, nil
}

// RemoveIPRule удаляет правило
func (c *Client) RemoveIPRule(ctx context.Context, token, cidr string) error {
	path := "/api/v1/admin/ip-rules" + query(url.Values{"cidr": {cidr}})
	if err := c.doRequest(ctx, http.MethodDelete, path, token, nil, nil); err != nil {
		return fmt.Errorf("remove ip rule request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос. Непустой token передается как Bearer.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(resp, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// newError разбирает тело ошибки и заголовки лимитов
func newError(resp *http.Response, body []byte) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Code = errResp.Error
		apiErr.Message = errResp.Message
		apiErr.Reason = errResp.Reason
		apiErr.RemainingMinute = errResp.RemainingMinute
		apiErr.RemainingHour = errResp.RemainingHour
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(seconds) * time.Second
	}

	return apiErr
}

func limitValue(limit int) []string {
	if limit <= 0 {
		return nil
	}
	return []string{strconv.Itoa(limit)}
}

func query(params url.Values) string {
	for key, values := range params {
		if len(values) == 0 {
			params.Del(key)
		}
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}
