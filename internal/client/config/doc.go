// Package config loads runtime configuration for the InvisibleDrop CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-n int      network (chain) id
//	-r string   JSON-RPC URL, overriding the address book
//	-u string   decryption relayer URL
//	-t string   decryption relayer access token
//	-d string   path of the local sqlite database
//	-k int      confirmations to wait for
//	-p int      receipt poll interval (seconds)
//	-i int      online status check interval (seconds)
//	-f int      parallel reads during refresh
//	-w string   address to watch read-only
//	-y string   YAML address book file
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds. Keys that are absent keep their
// earlier value:
//
//	{
//	  "network_id": 31337,
//	  "rpc_url": "http://127.0.0.1:8545",
//	  "relayer_url": "http://127.0.0.1:8080",
//	  "relayer_token": "...",
//	  "database_path": "invisibledrop.db",
//	  "confirmations": 1,
//	  "poll_interval": "2s",
//	  "online_check_interval": "5s",
//	  "fetch_concurrency": 4,
//	  "watch_address": "0x...",
//	  "networks_file": "networks.yaml"
//	}
package config
