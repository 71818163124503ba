// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/songlist/internal/formatter"
	"github.com/urfave/cli/v3"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "client-id",
			Usage:   "Spotify client ID (overrides config.toml)",
			Sources: cli.EnvVars("SPOTIFY_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:    "client-secret",
			Usage:   "Spotify client secret (overrides config.toml)",
			Sources: cli.EnvVars("SPOTIFY_CLIENT_SECRET"),
		},
	}
}

// importCommand is the main workflow: read a song list and add every match to a playlist.
func importCommand(r *Runner) *cli.Command {
	flags := append(credentialFlags(),
		&cli.StringFlag{
			Name:    "report",
			Aliases: []string{"r"},
			Usage:   "Path of the unable-to-find report (default from config, then " + formatter.DefaultReportPath + ")",
		},
		&cli.StringFlag{
			Name:  "summary",
			Usage: "Also write a full run summary to this path",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Summary format: text, json, csv or markdown",
			Value:   string(formatter.FormatJSON),
		},
		&cli.BoolFlag{
			Name:  "legacy-retry",
			Usage: "Use the shared retry flag that carries state between queries",
		},
		&cli.DurationFlag{
			Name:  "delay",
			Usage: "Minimum time between remote calls (default from config, then 500ms)",
		},
		&cli.DurationFlag{
			Name:  "backoff",
			Usage: "Wait before retrying a failed query (default from config, then 5s)",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show an interactive progress view",
		},
		&cli.BoolFlag{
			Name:  "history",
			Usage: "Journal the run and its outcomes in the database",
		},
		&cli.BoolFlag{
			Name:  "cache",
			Usage: "Reuse and store query matches in the database",
		},
	)

	return &cli.Command{
		Name:      "import",
		Usage:     "Add the top Spotify match of every line in FILE to the front of a playlist",
		ArgsUsage: "[CLIENT_ID CLIENT_SECRET] FILE PLAYLIST_ID",
		Description: "Tokens obtained during the import, together with credentials given as arguments, are written\n" +
			"to the config file only when it already exists. Run 'songlist setup config' first to keep them.",
		Flags:  flags,
		Action: r.Import,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize songlist with Spotify and store the tokens in the config file",
		Flags:  credentialFlags(),
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the Spotify account the stored tokens belong to",
				Flags:  credentialFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

// searchCommand looks up a single query the same way import does.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Print the top Spotify match for a query",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: append(credentialFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "cache",
				Usage: "Consult the match cache before searching",
			},
		),
		Action: r.Search,
	}
}

// historyCommand browses the import journal.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past imports recorded with --history",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list runs with this status (running, completed, cancelled, failed)",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Only list runs for this playlist ID",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.HistoryList,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a run and the queries it could not find",
				ArgsUsage: "RUN (sequence number, #sequence, or ID prefix of at least 8 characters)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "List every entry, not only unmatched ones",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Rewrite the unable-to-find report for this run to the given path",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Remove a run from the history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// cacheCommand manages the query match cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage cached query matches",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show how many matches are cached",
				Action: r.CacheStats,
			},
			{
				Name:  "forget",
				Usage: "Drop the cached match for a query",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Action: r.CacheForget,
			},
			{
				Name:   "clear",
				Usage:  "Drop every cached match",
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}
