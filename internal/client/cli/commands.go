package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду CLI
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	var err error

	switch command {
	case "login":
		err = c.runLogin(ctx, args)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "chat":
		err = c.runChat(ctx, args)
	case "conversations":
		err = c.runConversations(ctx, args)
	case "history":
		err = c.runHistory(ctx, args)
	case "delete":
		err = c.runDelete(ctx, args)
	case "audit":
		err = c.runAudit(ctx, args)
	case "ip-rules":
		err = c.runIPRules(ctx, args)
	case "help":
		PrintUsage(c.io)
	default:
		PrintUsage(c.io)
		return fmt.Errorf("unknown command: %s", command)
	}

	return describe(err)
}
