package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	pkgapi "github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

func (c *Cli) runChat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.io)
	newConversation := fs.Bool("new", false, "Start a new conversation")
	conversationID := fs.String("c", "", "Continue the given conversation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		var err error
		message, err = c.io.ReadInput("> ")
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
	}
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	// Без явного выбора продолжаем последний диалог
	if *conversationID == "" && !*newConversation {
		current, err := c.state.GetCurrentConversation(ctx)
		if err != nil {
			return err
		}
		*conversationID = current
	}

	var resp *pkgapi.ChatResponse
	err := c.withToken(ctx, func(token string) error {
		var err error
		resp, err = c.apiClient.Chat(ctx, token, pkgapi.ChatRequest{
			ConversationID: *conversationID,
			Message:        message,
		})
		return err
	})
	if err != nil {
		return err
	}

	if err := c.state.SaveCurrentConversation(ctx, resp.Conversation.ID); err != nil {
		return err
	}

	c.io.Println(resp.Reply.Content)
	c.io.Println()
	c.io.Printf("[conversation %s, %d messages, %d tokens]\n",
		resp.Conversation.ID, resp.Conversation.MessageCount, resp.Conversation.TotalTokens)

	return nil
}
