package config

import (
	"flag"
	"os"

	"github.com/margin-app/margin/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-f string   path to the local database file
//	-r string   base URL of the backend
//	-k string   backend API key
//	-b int      sync batch size
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-f", "-r", "-k", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "path to the local database file")
	fs.StringVar(&cfg.RemoteBaseURL, "r", cfg.RemoteBaseURL, "base URL of the backend")
	fs.StringVar(&cfg.RemoteAPIKey, "k", cfg.RemoteAPIKey, "backend API key")
	fs.IntVar(&cfg.SyncBatchSize, "b", cfg.SyncBatchSize, "max rows per table per sync round")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
