package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/wprelay/internal/config"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/qr"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/spf13/pflag"
)

type cli struct {
	client  *rpc.Client
	json    bool
	timeout time.Duration
}

func main() {
	configPath := pflag.String("config", layout.ConfigPath(), "path to config.toml")
	envPath := pflag.String("env-file", layout.EnvPath(), "path to a .env file with WPRELAY_* overrides")
	socket := pflag.String("socket", "", "control socket path (overrides config)")
	jsonFlag := pflag.Bool("json", false, "output in JSON format")
	timeout := pflag.Duration("timeout", 30*time.Second, "per-command timeout")
	pflag.Usage = printUsage
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := *socket
	if socketPath == "" {
		cfg, err := config.Resolve(*configPath, *envPath)
		if err != nil {
			fatalf("error: %v", err)
		}
		socketPath = cfg.Socket()
	}

	client, conn, err := rpc.Dial(socketPath)
	if err != nil {
		fatalf("error: cannot connect to relayd at %s: %v", socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	c := &cli{client: client, json: *jsonFlag, timeout: *timeout}
	if err := c.run(args); err != nil {
		_ = conn.Close()
		fatalf("error: %v", err)
	}
}

func (c *cli) run(args []string) error {
	// watch runs until interrupted rather than until the timeout.
	if args[0] == "watch" {
		if len(args) < 2 {
			return usageErr("watch <tenant>")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return c.watch(ctx, args[1])
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	switch args[0] {
	case "health":
		return c.health(ctx)
	case "tenants":
		return c.tenants(ctx)
	case "connect":
		if len(args) < 2 {
			return usageErr("connect <tenant>")
		}
		return c.connect(ctx, args[1])
	case "close":
		if len(args) < 2 {
			return usageErr("close <tenant>")
		}
		if err := c.client.CloseSession(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("session closed")
		return nil
	case "logout":
		if len(args) < 2 {
			return usageErr("logout <tenant>")
		}
		if err := c.client.Logout(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	case "status":
		if len(args) < 2 {
			return usageErr("status <tenant>")
		}
		return c.status(ctx, args[1])
	case "qr":
		if len(args) < 2 {
			return usageErr("qr <tenant>")
		}
		return c.qr(ctx, args[1])
	case "pair":
		if len(args) < 3 {
			return usageErr("pair <tenant> <phone>")
		}
		code, err := c.client.GeneratePairingCode(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		if c.json {
			return outputJSON(map[string]string{"code": code})
		}
		fmt.Printf("Enter this code on the phone: %s\n", code)
		return nil
	case "send":
		if len(args) < 4 {
			return usageErr("send <tenant> <to> <text>")
		}
		resp, err := c.client.SendMessage(ctx, &rpc.SendMessageRequest{
			TenantID: args[1],
			To:       args[2],
			Text:     strings.Join(args[3:], " "),
		})
		if err != nil {
			return err
		}
		if c.json {
			return outputJSON(resp)
		}
		fmt.Printf("sent %s\n", resp.MessageID)
		return nil
	case "profile":
		if len(args) < 2 {
			return usageErr("profile <tenant>")
		}
		return c.profile(ctx, args[1])
	case "groups":
		if len(args) < 2 {
			return usageErr("groups <tenant>")
		}
		return c.groups(ctx, args[1])
	case "rules":
		if len(args) < 2 {
			return usageErr("rules <add|list|get|delete|import> ...")
		}
		return c.rules(ctx, args[1], args[2:])
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *cli) health(ctx context.Context) error {
	h, err := c.client.Health(ctx)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(h)
	}
	fmt.Printf("Status:    %s\n", h.Status)
	fmt.Printf("PID:       %d\n", h.PID)
	fmt.Printf("Uptime:    %s\n", time.Duration(h.UptimeSec)*time.Second)
	fmt.Printf("Tenants:   %d (%d connected)\n", h.Tenants, h.Connected)
	return nil
}

func (c *cli) tenants(ctx context.Context) error {
	list, err := c.client.ListTenants(ctx)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("no tenants")
		return nil
	}
	for _, t := range list {
		marker := " "
		if t.IsConnected {
			marker = "*"
		}
		fmt.Printf("%s %-24s %-16s %s %s\n", marker, t.TenantID, t.State, t.Number, t.Name)
	}
	return nil
}

func (c *cli) connect(ctx context.Context, tenant string) error {
	resp, err := c.client.CreateSession(ctx, tenant)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(resp)
	}
	switch resp.Result {
	case "qr":
		return printQR(resp.Value)
	case "pairing_code":
		fmt.Printf("Enter this code on the phone: %s\n", resp.Value)
	case "already_live":
		fmt.Println("session already live")
	default:
		fmt.Println("session open")
	}
	return nil
}

func (c *cli) status(ctx context.Context, tenant string) error {
	st, err := c.client.GetStatus(ctx, tenant)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(st)
	}
	fmt.Printf("Tenant:        %s\n", st.TenantID)
	fmt.Printf("State:         %s\n", st.State)
	fmt.Printf("Connected:     %v\n", st.IsConnected)
	if st.LastConnected != nil {
		fmt.Printf("Last connect:  %s\n", st.LastConnected.Local().Format(time.RFC3339))
	}
	if st.LastDisconnected != nil {
		fmt.Printf("Last drop:     %s\n", st.LastDisconnected.Local().Format(time.RFC3339))
	}
	return nil
}

func (c *cli) qr(ctx context.Context, tenant string) error {
	resp, err := c.client.GetQR(ctx, tenant)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(resp)
	}
	if resp.Kind == "pairing_code" {
		fmt.Printf("Enter this code on the phone: %s\n", resp.Value)
		return nil
	}
	return printQR(resp.Value)
}

func (c *cli) profile(ctx context.Context, tenant string) error {
	t, err := c.client.GetTenant(ctx, tenant)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(t)
	}
	fmt.Printf("Tenant:     %s\n", t.TenantID)
	fmt.Printf("Name:       %s\n", t.Name)
	fmt.Printf("Number:     %s\n", t.Number)
	fmt.Printf("Logged in:  %v\n", t.IsLoggedIn)
	fmt.Printf("Valid:      %v\n", t.IsValid)
	if t.Avatar != "" {
		fmt.Printf("Avatar:     %s\n", t.Avatar)
	}
	return nil
}

func (c *cli) groups(ctx context.Context, tenant string) error {
	groups, err := c.client.ListGroups(ctx, tenant)
	if err != nil {
		return err
	}
	if c.json {
		return outputJSON(groups)
	}
	for _, g := range groups {
		fmt.Printf("%-40s %-4d %s\n", g.JID, len(g.Participants), g.Subject)
	}
	return nil
}

func (c *cli) watch(ctx context.Context, tenant string) error {
	w, err := c.client.WatchTenant(ctx, tenant)
	if err != nil {
		return err
	}
	for {
		u, err := w.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if c.json {
			if err := outputJSON(u); err != nil {
				return err
			}
			continue
		}
		switch u.Kind {
		case "qr":
			fmt.Printf("[%s] new QR code\n", u.At.Local().Format(time.TimeOnly))
			if err := printQR(u.Value); err != nil {
				return err
			}
		default:
			fmt.Printf("[%s] %s: %s\n", u.At.Local().Format(time.TimeOnly), u.Kind, u.Value)
		}
	}
}

func printQR(dataURL string) error {
	art, err := qr.TerminalFromDataURL(dataURL)
	if err != nil {
		return err
	}
	fmt.Println("Scan this QR code with WhatsApp:")
	fmt.Print(art)
	return nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageErr(form string) error {
	return fmt.Errorf("usage: relayctl %s", form)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: relayctl [--socket <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  health                          Show daemon health")
	fmt.Fprintln(os.Stderr, "  tenants                         List known tenants")
	fmt.Fprintln(os.Stderr, "  connect <tenant>                Open a session and show the QR code")
	fmt.Fprintln(os.Stderr, "  close <tenant>                  Close a live session")
	fmt.Fprintln(os.Stderr, "  logout <tenant>                 Log out and delete credentials")
	fmt.Fprintln(os.Stderr, "  status <tenant>                 Show connection state")
	fmt.Fprintln(os.Stderr, "  qr <tenant>                     Show the current QR or pairing code")
	fmt.Fprintln(os.Stderr, "  pair <tenant> <phone>           Request a phone pairing code")
	fmt.Fprintln(os.Stderr, "  send <tenant> <to> <text>       Send a text message")
	fmt.Fprintln(os.Stderr, "  profile <tenant>                Show the stored profile")
	fmt.Fprintln(os.Stderr, "  groups <tenant>                 List joined groups")
	fmt.Fprintln(os.Stderr, "  watch <tenant>                  Stream QR and status updates")
	fmt.Fprintln(os.Stderr, "  rules add <tenant> <from> <to>  Add a forwarding rule")
	fmt.Fprintln(os.Stderr, "  rules list <tenant>             List forwarding rules")
	fmt.Fprintln(os.Stderr, "  rules get <id> [tenant]         Show one rule")
	fmt.Fprintln(os.Stderr, "  rules delete <id> [tenant]      Delete a rule")
	fmt.Fprintln(os.Stderr, "  rules import <file.toml>        Save rules from a TOML file")
}
