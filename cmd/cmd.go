// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the local database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// authCommand handles the Spotify credential used for generation.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify credential",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and store the access token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Store an access token directly, skipping the browser flow",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a credential is held and the backend is reachable",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored credential",
				Action: r.AuthLogout,
			},
		},
	}
}

// mixCommand handles mix generation and the session directory.
func mixCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mix",
		Usage: "Generate and browse AI-curated mixes",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a mix from a text prompt",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "prompt",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "duration",
						Aliases: []string{"d"},
						Usage:   "Target mix length in minutes",
						Value:   30,
					},
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Log progress lines instead of the interactive view",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the final result as JSON",
					},
				},
				Action: r.MixGenerate,
			},
			{
				Name:  "show",
				Usage: "Show a past mix by session id (defaults to the last session)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MixShow,
			},
			{
				Name:  "list",
				Usage: "List past mix sessions, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of sessions to return",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of sessions to skip",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MixList,
			},
		},
	}
}

// bookmarkCommand handles locally pinned mixes.
func bookmarkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "bookmark",
		Aliases: []string{"bm"},
		Usage:   "Pin mixes locally so they survive backend pruning",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Bookmark a mix by session id (defaults to the last session)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.BookmarkAdd,
			},
			{
				Name:  "list",
				Usage: "List bookmarked mixes",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BookmarkList,
			},
			{
				Name:  "remove",
				Usage: "Remove a bookmark by session id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.BookmarkRemove,
			},
		},
	}
}

// fadeCommand exercises the equal-power crossfader.
func fadeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fade",
		Usage: "Equal-power crossfade between decks A and B",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Jump the fader to a position in [0,1] (0 = deck A, 1 = deck B)",
				Arguments: []cli.Argument{
					&cli.FloatArg{
						Name: "position",
					},
				},
				Action: r.FadeSet,
			},
			{
				Name:  "ramp",
				Usage: "Sweep the fader to a target position over a duration",
				Arguments: []cli.Argument{
					&cli.FloatArg{
						Name: "target",
					},
				},
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "over",
						Aliases: []string{"t"},
						Usage:   "Ramp duration",
					},
				},
				Action: r.FadeRamp,
			},
			{
				Name:   "curve",
				Usage:  "Print the equal-power gain curve",
				Action: r.FadeCurve,
			},
		},
	}
}
