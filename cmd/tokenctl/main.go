// cmd/tokenctl/main.go
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "tokenctl",
		Usage: "Host-side tools for the TOTP hardware token",
		Commands: []*cli.Command{
			RelayCommand(),
			ProvisionCommand(),
			CodeCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
