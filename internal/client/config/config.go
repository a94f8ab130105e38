package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
)

// Config holds runtime settings for the InvisibleDrop CLI.
//
// Fields:
//   - NetworkID: chain id selecting the address book entry.
//   - RPCURL: JSON-RPC endpoint; empty means the address book's URL.
//   - RelayerURL, RelayerToken: decryption relayer base URL and access token.
//   - DatabasePath: sqlite file holding the keystore, snapshot and journal.
//   - Confirmations, PollInterval: how transactions are waited for.
//   - OnlineCheckInterval: how often the client probes RPC reachability.
//   - FetchConcurrency: parallel reads during a registry refresh.
//   - WatchAddress: address used read-only while no wallet is unlocked.
//   - NetworksFile: YAML address book merged over the built-in one.
//   - LogLevel: slog level name for the stderr log (debug, info, warn, error).
type Config struct {
	NetworkID           uint64
	RPCURL              string
	RelayerURL          string
	RelayerToken        string
	DatabasePath        string
	Confirmations       uint64
	PollInterval        time.Duration
	OnlineCheckInterval time.Duration
	FetchConcurrency    int
	WatchAddress        string
	NetworksFile        string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.NetworkID = chain.SepoliaChainID
	c.RPCURL = ""
	c.RelayerURL = "http://127.0.0.1:8080"
	c.RelayerToken = ""
	c.DatabasePath = "invisibledrop.db"
	c.Confirmations = 1
	c.PollInterval = 2 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.FetchConcurrency = 4
	c.WatchAddress = ""
	c.NetworksFile = ""
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// AddressBook returns the built-in address book, merged with NetworksFile
// when one is configured.
func (c *Config) AddressBook() (chain.AddressBook, error) {
	book := chain.DefaultAddressBook()
	if c.NetworksFile == "" {
		return book, nil
	}
	return chain.LoadAddressBook(c.NetworksFile, book)
}

// Network resolves the selected network, applying the RPCURL override.
func (c *Config) Network() (chain.Network, error) {
	book, err := c.AddressBook()
	if err != nil {
		return chain.Network{}, err
	}
	n, err := book.Lookup(c.NetworkID)
	if err != nil {
		return chain.Network{}, err
	}
	if c.RPCURL != "" {
		n.RPCURL = c.RPCURL
	}
	return n, nil
}

// SlogLevel parses LogLevel. An empty value means INFO.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
