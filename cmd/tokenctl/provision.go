// cmd/tokenctl/provision.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tamzrod/totp-token/internal/provision"
	"github.com/tamzrod/totp-token/internal/serialport"
)

// ProvisionCommand creates the provisioning command
func ProvisionCommand() *cli.Command {
	flags := portFlags("port", "Token serial port (default stdin/stdout)", false)
	flags = append(flags, secretFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:  "key-length",
			Usage: "Key length the token expects",
			Value: 20,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "How long to wait for the acknowledgment",
			Value: 5 * time.Second,
		},
	)

	return &cli.Command{
		Name:   "provision",
		Usage:  "Write a shared secret into the token",
		Flags:  flags,
		Action: runProvisionCommand,
	}
}

func runProvisionCommand(ctx context.Context, cmd *cli.Command) error {
	key, _, err := secretFromCommand(cmd).decode()
	if err != nil {
		return err
	}
	if want := int(cmd.Int("key-length")); len(key) != want {
		return fmt.Errorf("secret is %d bytes, token expects %d", len(key), want)
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	port, err := openPort(ctx, cmd, "port")
	if err != nil {
		return fmt.Errorf("failed to open token port: %w", err)
	}
	defer port.Close()

	rx := make(chan byte, 256)
	go func() { _ = serialport.NewPump(port, 64).Run(ctx, rx) }()

	err = provision.Send(ctx, port, rx, key, func(line string) {
		fmt.Fprintf(os.Stderr, "token: %s\n", line)
	})
	if err != nil {
		return err
	}

	fmt.Printf("key saved (%d bytes)\n", len(key))
	return nil
}
