package api

// LoginRequest представляет запрос на аутентификацию администратора
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"` // номер телефона в формате E.164
	Password    string `json:"password"`     // пароль (проверяется bcrypt на сервере)
}

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // JWT refresh token
	TokenType    string `json:"token_type"`    // всегда "Bearer"
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
	Admin        Admin  `json:"admin"`         // профиль вошедшего администратора
}

// Admin публичный профиль администратора
type Admin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	RemainingMinute *int   `json:"remaining_minute,omitempty"` // остаток минутной квоты (для 429)
	RemainingHour   *int   `json:"remaining_hour,omitempty"`   // остаток часовой квоты (для 429)
	Error           string `json:"error"`                      // код ошибки
	Message         string `json:"message,omitempty"`          // дополнительное сообщение
	Reason          string `json:"reason,omitempty"`           // причина отклонения ввода
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Checks  map[string]string `json:"checks,omitempty"`
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
}
