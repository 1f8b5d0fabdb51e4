package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/api"
	pkgapi "github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

func (c *Cli) runAudit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(c.io)
	var filter api.AuditFilter
	fs.StringVar(&filter.AdminID, "admin", "", "Filter by admin ID")
	fs.StringVar(&filter.Action, "action", "", "Filter by action (e.g. MESSAGE_SENT, RATE_LIMITED)")
	fs.IntVar(&filter.Limit, "limit", 0, "Maximum number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var resp *pkgapi.AuditListResponse
	err := c.withToken(ctx, func(token string) error {
		var err error
		resp, err = c.apiClient.ListAudit(ctx, token, filter)
		return err
	})
	if err != nil {
		return err
	}

	if len(resp.Entries) == 0 {
		c.io.Println("No audit entries.")
		return nil
	}

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tADMIN\tACTION\tOUTCOME\tIP\tMS\tDETAILS")
	for _, e := range resp.Entries {
		ms := "-"
		if e.ProcessingTimeMs != nil {
			ms = fmt.Sprint(*e.ProcessingTimeMs)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.AdminID, e.Action, e.Outcome, e.IPAddress, ms, e.Details)
	}
	return w.Flush()
}

func (c *Cli) runIPRules(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		return c.listIPRules(ctx)
	case "add":
		return c.addIPRule(ctx, args)
	case "remove":
		if len(args) == 0 {
			return fmt.Errorf("missing CIDR. Usage: insights-admin ip-rules remove <cidr>")
		}
		err := c.withToken(ctx, func(token string) error {
			return c.apiClient.RemoveIPRule(ctx, token, args[0])
		})
		if err != nil {
			return err
		}
		c.io.Printf("✓ Rule %s removed.\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown ip-rules command: %s. Use: list, add, remove", sub)
	}
}

func (c *Cli) listIPRules(ctx context.Context) error {
	var resp *pkgapi.IPRuleListResponse
	err := c.withToken(ctx, func(token string) error {
		var err error
		resp, err = c.apiClient.ListIPRules(ctx, token)
		return err
	})
	if err != nil {
		return err
	}

	if len(resp.Rules) == 0 {
		c.io.Println("Allow-list is empty: admin endpoints accept requests from any address.")
		return nil
	}

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CIDR\tNOTE\tCREATED")
	for _, r := range resp.Rules {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.CIDR, r.Note, r.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func (c *Cli) addIPRule(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ip-rules add", flag.ContinueOnError)
	fs.SetOutput(c.io)
	note := fs.String("note", "", "Comment for the rule")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("missing CIDR. Usage: insights-admin ip-rules add [-note N] <cidr>")
	}

	var rule *pkgapi.IPRule
	err := c.withToken(ctx, func(token string) error {
		var err error
		rule, err = c.apiClient.AddIPRule(ctx, token, pkgapi.IPRuleRequest{CIDR: fs.Arg(0), Note: *note})
		return err
	})
	if err != nil {
		return err
	}

	c.io.Printf("✓ Rule %s added.\n", rule.CIDR)
	return nil
}
