package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sigfeed/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   base URL of the sigfeed server
//	-k string   keyring directory
//	-n int      pull pipeline prefetch (in-flight fetches)
//	-l int      listing page size
//	-t int      request timeout, seconds
//
// The function filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-k", "-n", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "base URL of the sigfeed server")
	fs.StringVar(&cfg.KeyringDir, "k", cfg.KeyringDir, "keyring directory")
	fs.IntVar(&cfg.Prefetch, "n", cfg.Prefetch, "pull pipeline prefetch")
	fs.IntVar(&cfg.PageSize, "l", cfg.PageSize, "listing page size")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
