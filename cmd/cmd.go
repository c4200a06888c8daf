// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles database and configuration initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize configuration and database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage distributor authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Perform a full OAuth login and print the token set",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the state of the cached token set",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// lookupCommand checks UPC codes against curated playlists.
func lookupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Aliases:   []string{"check"},
		Usage:     "Check UPC codes against curated playlists",
		ArgsUsage: "[upc codes]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON instead of the report",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Lookup,
	}
}

// hitsCommand lists and exports recorded playlist hits.
func hitsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "hits",
		Usage: "List recorded playlist hits",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to a file instead of stdout",
			},
		},
		Action: r.Hits,
	}
}

// watchCommand runs the background check scheduler.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run the scheduled playlist check loop",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "interval",
				Usage: "Override the check interval in seconds",
			},
		},
		Action: r.Watch,
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the lookup and hits API over HTTP",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Also run the check scheduler in the background",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for browsing hits.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive browser over recorded hits",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
