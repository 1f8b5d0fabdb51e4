package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt для паролей администраторов
const DefaultCost = 12

// ErrPasswordMismatch пароль не соответствует хешу
var ErrPasswordMismatch = errors.New("invalid password")

// HashPassword хеширует пароль с использованием bcrypt
// bcrypt учитывает только первые 72 байта, более длинные пароли отклоняются
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if cost == 0 {
		cost = DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword проверяет, соответствует ли пароль сохраненному хешу
// Сравнение выполняется bcrypt за постоянное время
func CheckPassword(password, hash string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if hash == "" {
		return fmt.Errorf("password hash cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to compare password: %w", err)
	}

	return nil
}

// dummyHash хеш случайного пароля той же стоимости, что и у настоящих учетных записей
var dummyHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(rand.Text()), DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("crypto: failed to build dummy hash: %v", err))
	}
	return string(hash)
})

// CheckDummy выполняет сравнение bcrypt с заведомо чужим хешем.
// Вызывается, когда учетная запись не найдена: ответ занимает столько же времени, сколько при неверном пароле.
func CheckDummy(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(password))
}
