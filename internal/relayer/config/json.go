package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/flagx"
	"github.com/dmitrijs2005/invisibledrop/internal/timex"
)

// JsonConfig is the JSON form of Config. Durations accept "5s" or integer
// nanoseconds; absent keys leave the current value alone.
type JsonConfig struct {
	EndpointAddr      *string         `json:"endpoint_addr"`
	DatabaseDSN       *string         `json:"database_dsn"`
	SecretKey         *string         `json:"secret_key"`
	TokenValidity     *timex.Duration `json:"token_validity"`
	ChainID           *uint64         `json:"chain_id"`
	VerifyingContract *string         `json:"verifying_contract"`
	MaxGrantDays      *int64          `json:"max_grant_days"`
	ShutdownTimeout   *timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config. If neither is given, no file is loaded. Errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.EndpointAddr != nil {
		config.EndpointAddr = *jc.EndpointAddr
	}
	if jc.DatabaseDSN != nil {
		config.DatabaseDSN = *jc.DatabaseDSN
	}
	if jc.SecretKey != nil {
		config.SecretKey = *jc.SecretKey
	}
	if jc.TokenValidity != nil {
		config.TokenValidity = time.Duration(jc.TokenValidity.Duration)
	}
	if jc.ChainID != nil {
		config.ChainID = *jc.ChainID
	}
	if jc.VerifyingContract != nil {
		config.VerifyingContract = *jc.VerifyingContract
	}
	if jc.MaxGrantDays != nil {
		config.MaxGrantDays = *jc.MaxGrantDays
	}
	if jc.ShutdownTimeout != nil {
		config.ShutdownTimeout = time.Duration(jc.ShutdownTimeout.Duration)
	}
}
