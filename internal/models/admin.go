package models

import "time"

// Role роль пользователя платформы
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Authority возвращает строку полномочий, которая кладется в access token (например, "ROLE_ADMIN")
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// Valid проверяет, что роль входит в известный набор
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// RoleFromAuthority разбирает строку полномочий обратно в роль
func RoleFromAuthority(authority string) (Role, bool) {
	const prefix = "ROLE_"
	if len(authority) <= len(prefix) || authority[:len(prefix)] != prefix {
		return "", false
	}
	role := Role(authority[len(prefix):])
	return role, role.Valid()
}

// Identity снимок аутентифицированного пользователя на момент выдачи токена.
// Значение неизменяемое: передается по значению и никогда не модифицируется после создания.
type Identity struct {
	SubjectID   string `json:"subject_id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Role        Role   `json:"role"`
	Active      bool   `json:"active"`
	Locked      bool   `json:"locked"`
}

// IsZero сообщает, что identity не установлена (анонимный вызов)
func (i Identity) IsZero() bool {
	return i.SubjectID == ""
}

// HasRole проверяет, что роль identity входит в переданный список
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// Admin учетная запись администратора
type Admin struct {
	CreatedAt    time.Time  `json:"created_at"`           // время создания
	UpdatedAt    time.Time  `json:"updated_at"`           // время последнего обновления
	LastLogin    *time.Time `json:"last_login,omitempty"` // время последнего входа
	ID           string     `json:"id"`                   // UUID администратора
	Name         string     `json:"name"`                 // отображаемое имя
	PhoneNumber  string     `json:"phone_number"`         // уникальный номер телефона (логин)
	PasswordHash string     `json:"-"`                    // bcrypt хеш пароля
	Role         Role       `json:"role"`                 // роль
	Active       bool       `json:"active"`               // учетная запись активна
	Locked       bool       `json:"locked"`               // учетная запись заблокирована
}

// Identity строит снимок identity из учетной записи
func (a *Admin) Identity() Identity {
	return Identity{
		SubjectID:   a.ID,
		Name:        a.Name,
		PhoneNumber: a.PhoneNumber,
		Role:        a.Role,
		Active:      a.Active,
		Locked:      a.Locked,
	}
}
