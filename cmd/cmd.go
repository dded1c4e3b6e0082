// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup and configuration operations
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, then initialize and migrate the database",
				Action: r.SetupDatabase,
			},
			{
				Name:   "migrations",
				Usage:  "Show applied and pending database migrations",
				Action: r.MigrationStatus,
			},
		},
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// playlistsCommand handles stored playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	jsonFlags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Stored playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the library, newest first",
				Flags:  jsonFlags,
				Action: r.ListPlaylists,
			},
			{
				Name:      "show",
				Usage:     "Show one playlist with its tracks",
				Flags:     jsonFlags,
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.ShowPlaylist,
			},
			{
				Name:      "create",
				Usage:     "Create a local playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.CreatePlaylist,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.RenamePlaylist,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist and its tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.DeletePlaylist,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: plmirror_export_{epoch})",
					},
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist id to export (repeatable, default: all)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Playlists written per second",
						Value: 20,
					},
				},
				Action: r.ExportPlaylists,
			},
		},
	}
}

// tracksCommand handles manual playlist membership
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Add or remove tracks by hand",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add tracks from a JSON object or array",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Track JSON file, - for stdin",
						Required: true,
					},
				},
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Action:    r.AddTracks,
			},
			{
				Name:  "remove",
				Usage: "Remove tracks by uid",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "uid",
						Usage:    "Track uid to remove (repeatable)",
						Required: true,
					},
				},
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Action:    r.RemoveTracks,
			},
		},
	}
}

// syncCommand handles reconciliation of externally fetched playlists
func syncCommand(r *Runner) *cli.Command {
	fileFlag := &cli.StringFlag{
		Name:     "file",
		Usage:    "Request JSON file, - for stdin",
		Required: true,
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Merge playlists fetched from a music platform",
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import a batch of playlists for a platform account",
				Flags:  []cli.Flag{fileFlag},
				Action: r.SyncImport,
			},
			{
				Name:   "playlist",
				Usage:  "Refresh one synced playlist, keeping manual additions",
				Flags:  []cli.Flag{fileFlag},
				Action: r.SyncPlaylist,
			},
			{
				Name:      "status",
				Usage:     "Show the connected account for a platform",
				Arguments: []cli.Argument{&cli.StringArg{Name: "platform"}},
				Action:    r.SyncStatus,
			},
		},
	}
}

// tuiCommand launches the interactive library browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse and edit the library interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "export-format",
				Usage: "Format used by the export view",
				Value: "json",
			},
			&cli.StringFlag{
				Name:  "export-dir",
				Usage: "Directory used by the export view",
			},
		},
		Action: r.TUI,
	}
}
