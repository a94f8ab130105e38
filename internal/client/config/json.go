package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/flagx"
	"github.com/dmitrijs2005/invisibledrop/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// tell an absent key from a zero value.
type JsonConfig struct {
	NetworkID           *uint64         `json:"network_id"`
	RPCURL              *string         `json:"rpc_url"`
	RelayerURL          *string         `json:"relayer_url"`
	RelayerToken        *string         `json:"relayer_token"`
	DatabasePath        *string         `json:"database_path"`
	Confirmations       *uint64         `json:"confirmations"`
	PollInterval        *timex.Duration `json:"poll_interval"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	FetchConcurrency    *int            `json:"fetch_concurrency"`
	WatchAddress        *string         `json:"watch_address"`
	NetworksFile        *string         `json:"networks_file"`
	LogLevel            *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing. Read or unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc JsonConfig) apply(cfg *Config) {
	set(&cfg.NetworkID, jc.NetworkID)
	set(&cfg.RPCURL, jc.RPCURL)
	set(&cfg.RelayerURL, jc.RelayerURL)
	set(&cfg.RelayerToken, jc.RelayerToken)
	set(&cfg.DatabasePath, jc.DatabasePath)
	set(&cfg.Confirmations, jc.Confirmations)
	set(&cfg.FetchConcurrency, jc.FetchConcurrency)
	set(&cfg.WatchAddress, jc.WatchAddress)
	set(&cfg.NetworksFile, jc.NetworksFile)
	set(&cfg.LogLevel, jc.LogLevel)
	if jc.PollInterval != nil {
		cfg.PollInterval = time.Duration(jc.PollInterval.Duration)
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
