// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/vibes/internal/formatter"
	"github.com/urfave/cli/v3"
)

func tokenFlagDef() cli.Flag {
	return &cli.StringFlag{
		Name:    "token",
		Aliases: []string{"t"},
		Usage:   "Spotify access token",
		Sources: cli.EnvVars("SPOTIFY_ACCESS_TOKEN"),
	}
}

func formatFlagDef() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv, json",
		Value:   string(formatter.FormatText),
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// loginCommand runs the OAuth flow from the terminal
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authorize with Spotify and print the tokens",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: defaultLoginTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Login,
	}
}

// refreshCommand exchanges a refresh token for a new access token
func refreshCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Exchange a refresh token for a new access token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "refresh-token",
				Usage:   "Spotify refresh token",
				Sources: cli.EnvVars("SPOTIFY_REFRESH_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Refresh,
	}
}

// parseCommand asks the model to describe a vibe
func parseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Turn a vibe into a mood, genre and song list",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Parse,
	}
}

// tracksCommand resolves a vibe's songs without touching the user's library
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tracks",
		Usage:     "Resolve a vibe's songs to Spotify tracks",
		ArgsUsage: "<prompt>",
		Flags:     []cli.Flag{tokenFlagDef(), formatFlagDef()},
		Action:    r.Tracks,
	}
}

// buildCommand creates a playlist from a vibe
func buildCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Create a Spotify playlist from a vibe",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			tokenFlagDef(),
			formatFlagDef(),
			&cli.StringFlag{
				Name:  "user",
				Usage: "Playlist owner (default: the token's account)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the playlist in a browser when done",
			},
		},
		Action: r.Build,
	}
}

// exportCommand writes reports for several vibes
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Resolve several vibes and write one report per vibe",
		ArgsUsage: "<prompt>...",
		Flags: []cli.Flag{
			tokenFlagDef(),
			formatFlagDef(),
			&cli.StringFlag{
				Name:  "file",
				Usage: "Read prompts from a file, one per line",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: vibes_export_{timestamp})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of vibes processed concurrently",
				Value: 3,
			},
			&cli.BoolFlag{
				Name:  "build",
				Usage: "Also create a playlist for each vibe",
			},
			&cli.BoolFlag{
				Name:  "cover",
				Usage: "Download album art (markdown only)",
			},
		},
		Action: r.Export,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive TUI",
		Flags: []cli.Flag{
			tokenFlagDef(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/vibes-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: r.ConfigShow,
			},
		},
	}
}
