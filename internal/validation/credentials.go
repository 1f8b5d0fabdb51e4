package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// PhoneNumberPattern определяет допустимый формат номера телефона (логин администратора)
// Необязательный '+', затем 10-15 цифр
var PhoneNumberPattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

const (
	// MinPasswordLen минимальная длина пароля администратора
	MinPasswordLen = 8
	// MaxPasswordLen bcrypt учитывает только первые 72 байта
	MaxPasswordLen = 72
	// MaxNameLen максимальная длина отображаемого имени
	MaxNameLen = 100
)

// ValidatePhoneNumber проверяет, что номер телефона соответствует формату
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number cannot be empty")
	}

	if !PhoneNumberPattern.MatchString(phone) {
		return fmt.Errorf("phone number must contain 10-15 digits with an optional leading '+'")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}

// ValidateName проверяет отображаемое имя администратора
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}

	return nil
}
