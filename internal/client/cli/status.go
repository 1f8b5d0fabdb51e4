package cli

import (
	"context"
	"errors"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()
	c.io.Printf("Server: %s\n", c.apiClient.BaseURL())

	// Состояние сервера (best effort)
	health, err := c.apiClient.Health(ctx)
	if err != nil {
		c.io.Printf("Server status: unreachable (%v)\n", err)
	} else {
		c.io.Printf("Server status: %s (version %s)\n", health.Status, health.Version)
		for name, status := range health.Checks {
			c.io.Printf("  %s: %s\n", name, status)
		}
	}
	c.io.Println()

	session, err := c.authService.Session(ctx)
	if errors.Is(err, auth.ErrNotAuthenticated) {
		c.io.Println("Status: Not authenticated")
		c.io.Println("Run 'insights-admin login' to authenticate.")
		return nil
	}
	if err != nil {
		return err
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("Admin: %s (%s)\n", session.Name, session.Role)
	c.io.Printf("Phone: %s\n", session.PhoneNumber)
	c.io.Printf("Access token expires: %s\n", session.AccessExpiresAt.Local().Format(time.RFC3339))

	if remaining := time.Until(session.AccessExpiresAt); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("Access token expired, it will be refreshed on the next request.")
	}

	current, err := c.state.GetCurrentConversation(ctx)
	if err != nil {
		return err
	}
	if current != "" {
		c.io.Printf("Current conversation: %s\n", current)
	}

	return nil
}
