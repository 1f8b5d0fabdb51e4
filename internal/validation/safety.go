package validation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinInputLen минимальная длина свободного текста
	MinInputLen = 2
	// MaxInputLen максимальная длина свободного текста
	MaxInputLen = 2000
	// MaxSpecialCharRatio доля символов вне разрешенного набора, после которой ввод отклоняется
	MaxSpecialCharRatio = 0.30
	// PreviewLen длина превью в логах
	PreviewLen = 50
)

var (
	// sqlKeywordPattern ключевые слова SQL как отдельные слова в любом месте строки.
	// Ложные срабатывания на обычный английский ("please select ...") ожидаемы.
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE|UNION|DECLARE)\b`)

	// scriptPattern признаки разметки и скриптов
	scriptPattern = regexp.MustCompile(`(?i)(<\s*script|javascript:|\bon[a-z]+\s*=|<\s*iframe|eval\s*\(|document\.|window\.)`)

	// commandCharPattern метасимволы shell
	commandCharPattern = regexp.MustCompile("[;&|`$(){}\\[\\]<>]")
)

// Reason причина отклонения ввода
type Reason string

const (
	ReasonSQLKeywords  Reason = "SQL_KEYWORDS"
	ReasonScript       Reason = "SCRIPT"
	ReasonCommandChars Reason = "COMMAND_CHARS"
	ReasonSpecialChars Reason = "SPECIAL_CHARS"
	ReasonLength       Reason = "LENGTH"
)

// Message возвращает текст причины для ответа клиенту
func (r Reason) Message() string {
	switch r {
	case ReasonSQLKeywords:
		return "input contains dangerous SQL keywords"
	case ReasonScript:
		return "input contains dangerous scripts"
	case ReasonCommandChars:
		return "input contains dangerous command characters"
	case ReasonSpecialChars:
		return "input contains too many special characters"
	case ReasonLength:
		return fmt.Sprintf("input must be between %d and %d characters", MinInputLen, MaxInputLen)
	default:
		return "input rejected"
	}
}

// RejectionError возвращается, когда ввод признан небезопасным
type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return e.Reason.Message()
}

// SafetyValidator классифицирует свободный текст администратора до того, как он попадет
// в SQL, shell, промпт модели или браузер. Состояния не имеет.
type SafetyValidator struct {
	logger *slog.Logger
}

// NewSafetyValidator создает валидатор
func NewSafetyValidator(logger *slog.Logger) *SafetyValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SafetyValidator{logger: logger}
}

// Validate проверяет ввод. Проверки выполняются в фиксированном порядке, первая сработавшая
// определяет причину. Пустой ввод считается допустимым: обязательность поля проверяет другой слой.
func (v *SafetyValidator) Validate(ctx context.Context, input string) error {
	reason, ok := Classify(input)
	if ok {
		return nil
	}

	v.logger.WarnContext(ctx, "unsafe input rejected",
		slog.String("reason", string(reason)),
		slog.String("preview", RedactPreview(input)))

	return &RejectionError{Reason: reason}
}

// IsSafe сообщает, проходит ли ввод все проверки
func (v *SafetyValidator) IsSafe(ctx context.Context, input string) bool {
	return v.Validate(ctx, input) == nil
}

// Classify выполняет проверки без логирования
func Classify(input string) (Reason, bool) {
	if strings.TrimSpace(input) == "" {
		return "", true
	}

	if sqlKeywordPattern.MatchString(input) {
		return ReasonSQLKeywords, false
	}

	if scriptPattern.MatchString(input) {
		return ReasonScript, false
	}

	if commandCharPattern.MatchString(input) {
		return ReasonCommandChars, false
	}

	total := utf8.RuneCountInString(input)
	special := 0
	for _, r := range input {
		if !isAllowedChar(r) {
			special++
		}
	}
	if float64(special) > float64(total)*MaxSpecialCharRatio {
		return ReasonSpecialChars, false
	}

	if total < MinInputLen || total > MaxInputLen {
		return ReasonLength, false
	}

	return "", true
}

func isAllowedChar(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune(`,.!?;:'"-`, r)
}

// RedactPreview готовит текст для записи в лог: все, кроме букв, цифр, пробела и базовой
// пунктуации, заменяется на '*', результат обрезается до PreviewLen символов.
func RedactPreview(input string) string {
	var b strings.Builder
	n := 0
	for _, r := range input {
		if n == PreviewLen {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', strings.ContainsRune(".,!?-", r):
			b.WriteRune(r)
		default:
			b.WriteRune('*')
		}
		n++
	}
	return b.String()
}
