package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/wprelay/internal/rpc"
)

// ruleFile is the TOML layout accepted by "rules import":
//
//	[[rule]]
//	tenant_id = "acme"
//	from_jid  = "120363000000000001@g.us"
//	to_jid    = "120363000000000002@g.us"
type ruleFile struct {
	Rules []ruleEntry `toml:"rule"`
}

type ruleEntry struct {
	TenantID        string `toml:"tenant_id"`
	FromJID         string `toml:"from_jid"`
	ToJID           string `toml:"to_jid"`
	FromDisplayName string `toml:"from_display_name"`
	ToDisplayName   string `toml:"to_display_name"`
}

func loadRuleFile(path string) ([]rpc.Rule, error) {
	var f ruleFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	rules := make([]rpc.Rule, 0, len(f.Rules))
	for _, e := range f.Rules {
		rules = append(rules, rpc.Rule{
			TenantID:        e.TenantID,
			FromJID:         e.FromJID,
			ToJID:           e.ToJID,
			FromDisplayName: e.FromDisplayName,
			ToDisplayName:   e.ToDisplayName,
		})
	}
	return rules, nil
}

func (c *cli) rules(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "add":
		if len(args) < 3 {
			return usageErr("rules add <tenant> <from> <to>")
		}
		return c.saveRules(ctx, []rpc.Rule{{TenantID: args[0], FromJID: args[1], ToJID: args[2]}})
	case "import":
		if len(args) < 1 {
			return usageErr("rules import <file.toml>")
		}
		rules, err := loadRuleFile(args[0])
		if err != nil {
			return err
		}
		return c.saveRules(ctx, rules)
	case "list":
		if len(args) < 1 {
			return usageErr("rules list <tenant>")
		}
		rules, err := c.client.ListRules(ctx, args[0])
		if err != nil {
			return err
		}
		if c.json {
			return outputJSON(rules)
		}
		if len(rules) == 0 {
			fmt.Println("no rules")
			return nil
		}
		for _, r := range rules {
			printRule(r)
		}
		return nil
	case "get":
		if len(args) < 1 {
			return usageErr("rules get <id> [tenant]")
		}
		r, err := c.client.GetRule(ctx, optional(args, 1), args[0])
		if err != nil {
			return err
		}
		if c.json {
			return outputJSON(r)
		}
		printRule(*r)
		return nil
	case "delete":
		if len(args) < 1 {
			return usageErr("rules delete <id> [tenant]")
		}
		if err := c.client.DeleteRule(ctx, optional(args, 1), args[0]); err != nil {
			return err
		}
		fmt.Println("rule deleted")
		return nil
	default:
		return fmt.Errorf("unknown rules command: %s", sub)
	}
}

func (c *cli) saveRules(ctx context.Context, rules []rpc.Rule) error {
	results, err := c.client.SaveRules(ctx, rules)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(results)
	}
	for _, r := range results {
		switch r.Status {
		case rpc.RuleInvalid:
			fmt.Printf("invalid    %s -> %s: %s\n", r.Rule.FromJID, r.Rule.ToJID, r.Error)
		default:
			fmt.Printf("%-10s %s  %s -> %s\n", r.Status, r.Rule.ID, r.Rule.FromJID, r.Rule.ToJID)
		}
	}
	return nil
}

func printRule(r rpc.Rule) {
	from := r.FromJID
	if r.FromDisplayName != "" {
		from = fmt.Sprintf("%s (%s)", r.FromJID, r.FromDisplayName)
	}
	to := r.ToJID
	if r.ToDisplayName != "" {
		to = fmt.Sprintf("%s (%s)", r.ToJID, r.ToDisplayName)
	}
	fmt.Printf("%s  [%s]  %s -> %s\n", r.ID, r.TenantID, from, to)
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
