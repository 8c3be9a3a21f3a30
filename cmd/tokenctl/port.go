// cmd/tokenctl/port.go
package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tamzrod/totp-token/internal/serialport"
)

const openRetries = 5

func portFlags(name, usage string, required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     name,
			Usage:    usage,
			Required: required,
		},
		&cli.IntFlag{
			Name:  "baud",
			Usage: "Serial baud rate",
			Value: 9600,
		},
		&cli.DurationFlag{
			Name:  "read-timeout",
			Usage: "Serial read timeout",
			Value: 100 * time.Millisecond,
		},
	}
}

func openPort(ctx context.Context, cmd *cli.Command, name string) (serialport.Port, error) {
	return serialport.OpenWithRetry(ctx, serialport.Config{
		Address:  cmd.String(name),
		BaudRate: int(cmd.Int("baud")),
		Timeout:  cmd.Duration("read-timeout"),
	}, openRetries)
}
