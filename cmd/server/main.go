package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "toolshed",
		Usage:   "Session and sign-in service",
		Version: Version + " (commit: " + Commit + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file; environment variables override it",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		// Running without a command serves.
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serveAction,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply all pending migrations",
						Action: migrateUpAction,
					},
					{
						Name:   "down",
						Usage:  "Roll back the latest migration",
						Action: migrateDownAction,
					},
					{
						Name:   "version",
						Usage:  "Print the applied schema version",
						Action: migrateVersionAction,
					},
				},
			},
		},
	}
}
