package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return fmt.Errorf("missing conversation ID. Usage: insights-admin delete <id>")
	}
	id := args[0]

	ok, err := c.io.Confirm(fmt.Sprintf("Delete conversation %s?", id))
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		c.io.Println("Deletion cancelled.")
		return nil
	}

	err = c.withToken(ctx, func(token string) error {
		return c.apiClient.DeleteConversation(ctx, token, id)
	})
	if err != nil {
		return err
	}

	current, err := c.state.GetCurrentConversation(ctx)
	if err != nil {
		return err
	}
	if current == id {
		if err := c.state.ClearCurrentConversation(ctx); err != nil {
			return err
		}
	}

	c.io.Println("✓ Conversation deleted.")
	return nil
}
