package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/wprelay/internal/config"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/tui"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", layout.ConfigPath(), "path to config.toml")
	envPath := pflag.String("env-file", layout.EnvPath(), "path to a .env file with WPRELAY_* overrides")
	socket := pflag.String("socket", "", "control socket path (overrides config)")
	autoStart := pflag.Bool("start", true, "start relayd if it is not running")
	pflag.Parse()

	socketPath := *socket
	if socketPath == "" {
		cfg, err := config.Resolve(*configPath, *envPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		socketPath = cfg.Socket()
	}

	// Probe daemon health; auto-start if needed.
	if !probeDaemon(socketPath) {
		if !*autoStart {
			fmt.Fprintf(os.Stderr, "relayd is not running on %s\n", socketPath)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "relayd not running, starting...")
		if err := startDaemon(*configPath, *envPath, *socket); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fmt.Fprintln(os.Stderr, "daemon did not become ready")
			os.Exit(1)
		}
	}

	client, conn, err := rpc.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	if err := tui.NewApp(client).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeDaemon reports whether a daemon answers Health on the socket.
func probeDaemon(socketPath string) bool {
	client, conn, err := rpc.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.Health(ctx)
	return err == nil
}

func startDaemon(configPath, envPath, socket string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	relayd := filepath.Join(filepath.Dir(executable), "relayd")
	if _, err := os.Stat(relayd); err != nil {
		relayd = "relayd"
	}

	args := []string{"--config", configPath, "--env-file", envPath}
	if socket != "" {
		args = append(args, "--socket", socket)
	}
	cmd := exec.Command(relayd, args...)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls Health until it succeeds or timeout passes.
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
