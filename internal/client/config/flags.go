package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Intervals are
// given in whole seconds.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-n", "-r", "-u", "-t", "-d", "-k", "-p", "-i", "-f", "-w", "-y", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.Uint64Var(&cfg.NetworkID, "n", cfg.NetworkID, "network (chain) id")
	fs.StringVar(&cfg.RPCURL, "r", cfg.RPCURL, "JSON-RPC URL")
	fs.StringVar(&cfg.RelayerURL, "u", cfg.RelayerURL, "decryption relayer URL")
	fs.StringVar(&cfg.RelayerToken, "t", cfg.RelayerToken, "decryption relayer access token")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.Uint64Var(&cfg.Confirmations, "k", cfg.Confirmations, "confirmations to wait for")
	pollInterval := fs.Int("p", int(cfg.PollInterval.Seconds()), "receipt poll interval (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVar(&cfg.FetchConcurrency, "f", cfg.FetchConcurrency, "parallel reads during refresh")
	fs.StringVar(&cfg.WatchAddress, "w", cfg.WatchAddress, "address to watch read-only")
	fs.StringVar(&cfg.NetworksFile, "y", cfg.NetworksFile, "YAML address book file")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*pollInterval) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
