package cli

import (
	"context"
	"fmt"
)

// runLogout забывает локальную сессию и текущий диалог.
// Сервер не хранит выданные токены, поэтому они остаются действительными до истечения срока.
func (c *Cli) runLogout(ctx context.Context) error {
	// Имя нужно до удаления сессии. Сессия другого сервера тоже удаляется, но без имени.
	name := ""
	if session, err := c.authService.Session(ctx); err == nil {
		name = session.Name
	}

	if err := c.authService.Logout(ctx); err != nil {
		return err
	}
	if err := c.state.ClearCurrentConversation(ctx); err != nil {
		return fmt.Errorf("failed to clear current conversation: %w", err)
	}

	if name != "" {
		c.io.Printf("✓ Logged out %s from %s.\n", name, c.apiClient.BaseURL())
	} else {
		c.io.Println("✓ Local session deleted.")
	}
	c.io.Println("Issued tokens remain valid until they expire.")

	return nil
}
