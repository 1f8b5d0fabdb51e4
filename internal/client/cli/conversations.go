package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	pkgapi "github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

func (c *Cli) runConversations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("conversations", flag.ContinueOnError)
	fs.SetOutput(c.io)
	limit := fs.Int("limit", 0, "Maximum number of conversations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var resp *pkgapi.ConversationListResponse
	err := c.withToken(ctx, func(token string) error {
		var err error
		resp, err = c.apiClient.ListConversations(ctx, token, *limit)
		return err
	})
	if err != nil {
		return err
	}

	if len(resp.Conversations) == 0 {
		c.io.Println("No conversations yet. Start one with 'insights-admin chat'.")
		return nil
	}

	current, err := c.state.GetCurrentConversation(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tMESSAGES\tUPDATED")
	for _, conv := range resp.Conversations {
		marker := ""
		if conv.ID == current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			marker, conv.ID, conv.Title, conv.MessageCount, conv.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func (c *Cli) runHistory(ctx context.Context, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		current, err := c.state.GetCurrentConversation(ctx)
		if err != nil {
			return err
		}
		if current == "" {
			return fmt.Errorf("missing conversation ID. Usage: insights-admin history <id>")
		}
		id = current
	}

	var resp *pkgapi.ConversationHistoryResponse
	err := c.withToken(ctx, func(token string) error {
		var err error
		resp, err = c.apiClient.GetConversation(ctx, token, id)
		return err
	})
	if err != nil {
		return err
	}

	c.io.Printf("=== %s ===\n", resp.Conversation.Title)
	c.io.Printf("ID: %s, messages: %d, tokens: %d\n",
		resp.Conversation.ID, resp.Conversation.MessageCount, resp.Conversation.TotalTokens)
	for _, msg := range resp.Messages {
		c.io.Println()
		c.io.Printf("[%s] %s\n", msg.Role, msg.CreatedAt.Local().Format(time.DateTime))
		c.io.Println(msg.Content)
	}

	return nil
}
