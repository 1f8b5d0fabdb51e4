package cli

import (
	"context"
	"flag"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.io)
	phone := fs.String("phone", "", "Phone number")
	passwordFile := fs.String("password-file", "", "Path to file containing password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Login ===")
	c.io.Println()

	if *phone == "" {
		var err error
		*phone, err = c.io.ReadInput("Phone number: ")
		if err != nil {
			return fmt.Errorf("failed to read phone number: %w", err)
		}
	}

	password, err := c.getPassword(Passwords{FromFile: *passwordFile})
	if err != nil {
		return err
	}

	c.io.Println("Authenticating...")

	session, err := c.authService.Login(ctx, *phone, password)
	if err != nil {
		return err
	}

	// Текущий диалог прошлой сессии мог принадлежать другому администратору
	if err := c.state.ClearCurrentConversation(ctx); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Admin: %s (%s)\n", session.Name, session.Role)
	c.io.Printf("Access token expires: %s\n", session.AccessExpiresAt.Local().Format(time.RFC3339))

	return nil
}
