// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles initial setup: config file, database, migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles Google OAuth operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Google authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Google using OAuth2 (opens a browser)",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current authentication state",
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand handles transfer operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync media from Drive to Photos",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a Drive → Photos transfer",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "folder",
						Aliases: []string{"f"},
						Usage:   "Drive folder ID to sync (recursive)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Sync every media file visible to the account",
					},
					&cli.StringFlag{
						Name:  "since",
						Usage: "Only sync files modified after this time (RFC3339 or YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Stop after this many pending files (0 = no limit)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "List what would be transferred without moving anything",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Parallel transfer workers (overrides config)",
					},
					&cli.StringFlag{
						Name:  "dedup-mode",
						Usage: "Duplicate detection: none, name, hash, name+hash (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "refresh-cache",
						Usage: "Rebuild the destination filename cache before syncing",
					},
					&cli.IntFlag{
						Name:  "save-every",
						Usage: "Ledger records between checkpoints (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the final report as JSON",
					},
					&cli.StringFlag{
						Name:  "failures",
						Usage: "Write failed items to this CSV file",
					},
				},
				Action: r.SyncRun,
			},
		},
	}
}

// cacheCommand manages the destination filename cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the Photos filename cache",
		Commands: []*cli.Command{
			{
				Name:   "refresh",
				Usage:  "Rebuild the cache by enumerating the Photos library",
				Action: r.CacheRefresh,
			},
			{
				Name:  "show",
				Usage: "Show cache status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "names",
						Usage: "Also list every cached filename",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheShow,
			},
		},
	}
}

// historyCommand inspects past sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect sync run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List past sync runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (queued, running, completed, failed, cancelled)",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output as CSV",
					},
				},
				Action: r.HistoryList,
			},
		},
	}
}
