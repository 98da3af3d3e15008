package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags overlays cfg with command-line flags and returns the remaining
// positional arguments.
//
//	-a string   server base URL
//	-t int      request timeout (in seconds)
//	-s string   session database path
//
// -c/-config is accepted here too so that it does not end flag parsing.
func parseFlags(cfg *Config, args []string) []string {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "server base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SessionDSN, "s", cfg.SessionDSN, "session database path")

	var ignored string
	fs.StringVar(&ignored, "c", "", "")
	fs.StringVar(&ignored, "config", "", "")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})

	return fs.Args()
}
