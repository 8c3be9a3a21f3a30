// cmd/tokenctl/relay.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tamzrod/totp-token/internal/bridge"
)

// RelayCommand creates the bridge command
func RelayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "Relay bytes verbatim between a terminal and the token",
		Flags: append(
			portFlags("element", "Token serial port", true),
			&cli.StringFlag{
				Name:  "terminal",
				Usage: "Terminal serial port (default stdin/stdout)",
			},
		),
		Action: runRelayCommand,
	}
}

func runRelayCommand(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	element, err := openPort(ctx, cmd, "element")
	if err != nil {
		return fmt.Errorf("failed to open token port: %w", err)
	}
	defer element.Close()

	terminal, err := openPort(ctx, cmd, "terminal")
	if err != nil {
		return fmt.Errorf("failed to open terminal port: %w", err)
	}
	defer terminal.Close()

	slog.Info("relay started", "element", cmd.String("element"), "terminal", cmd.String("terminal"))

	stats, err := bridge.Relay(ctx, terminal, element)
	slog.Info("relay stopped", "to_element", stats.ToElement, "to_terminal", stats.ToTerminal)
	return err
}
