package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/api"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/auth"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/iocli"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/storage"
)

// PasswordEnv переменная окружения с паролем администратора
const PasswordEnv = "INSIGHTS_ADMIN_PASSWORD"

// Passwords источники пароля, заданные флагами
type Passwords struct {
	FromFile string
}

type Cli struct {
	io          iocli.IO
	apiClient   *api.Client
	authService *auth.Service
	state       storage.MetadataStorage
	getenv      func(string) string
}

func New(io iocli.IO, apiClient *api.Client, authService *auth.Service, state storage.MetadataStorage) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		authService: authService,
		state:       state,
		getenv:      os.Getenv,
	}
}

// getPassword retrieves admin password from various sources with priority:
// 1. Environment variable INSIGHTS_ADMIN_PASSWORD
// 2. File specified in passwords.FromFile
// 3. Interactive prompt (fallback)
func (c *Cli) getPassword(passwords Passwords) (string, error) {
	// Priority 1: Environment variable
	if envPassword := c.getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if passwords.FromFile != "" {
		content, err := os.ReadFile(passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: Interactive prompt (fallback)
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

// withToken выполняет вызов с действующим access token.
// Если сервер ответил 401 (токен отозван раньше срока), пара обновляется и вызов повторяется один раз.
func (c *Cli) withToken(ctx context.Context, call func(token string) error) error {
	token, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = call(token)
	if !api.IsUnauthorized(err) {
		return err
	}

	token, err = c.authService.Refresh(ctx)
	if err != nil {
		return err
	}
	return call(token)
}

// describe дополняет ошибку сервера подсказками для администратора
func describe(err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	var hints []string
	if apiErr.RetryAfter > 0 {
		hints = append(hints, "retry in "+apiErr.RetryAfter.Round(time.Second).String())
	}
	if apiErr.RemainingMinute != nil && apiErr.RemainingHour != nil {
		hints = append(hints, fmt.Sprintf("remaining: %d/min, %d/hour", *apiErr.RemainingMinute, *apiErr.RemainingHour))
	}
	if len(hints) == 0 {
		return err
	}
	return fmt.Errorf("%w; %s", err, strings.Join(hints, "; "))
}

func PrintUsage(out iocli.IO) {
	out.Println("Fulus Pay Insights Admin Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  insights-admin [OPTIONS] COMMAND [ARGS]")
	out.Println()
	out.Println("Options:")
	out.Println("  --version                Show version information")
	out.Println("  --server URL             Server URL (default: http://localhost:8080, env INSIGHTS_SERVER)")
	out.Println("  --db PATH                Path to local session file (default: insights-admin.db)")
	out.Println()
	out.Println("Commands:")
	out.Println("  login [-phone P] [-password-file F]   Login with phone number and password")
	out.Println("  logout                                Delete the local session")
	out.Println("  status                                Show session and server status")
	out.Println("  chat [-new] [-c ID] MESSAGE           Ask the insights assistant")
	out.Println("  conversations [-limit N]              List your conversations")
	out.Println("  history [ID]                          Show messages of a conversation (default: current)")
	out.Println("  delete ID                             Delete a conversation")
	out.Println("  audit [-admin ID] [-action A] [-limit N]   Show the audit journal (SUPER_ADMIN)")
	out.Println("  ip-rules [list|add CIDR [-note N]|remove CIDR]  Manage the IP allow-list (SUPER_ADMIN)")
	out.Println()
	out.Println("Password Priority (highest to lowest):")
	out.Println("  1. " + PasswordEnv + " environment variable")
	out.Println("  2. --password-file (file path)")
	out.Println("  3. Interactive prompt (fallback)")
	out.Println()
	out.Println("Examples:")
	out.Println("  insights-admin login -phone +2348012345678")
	out.Println("  insights-admin chat \"How many transfers failed yesterday?\"")
	out.Println("  insights-admin chat -new \"Top merchants by volume this week\"")
	out.Println("  insights-admin audit -action RATE_LIMITED -limit 20")
}
