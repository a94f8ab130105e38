package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/flagx"
)

// parseFlags populates selected relayer Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, hours
//	-n uint     chain id of the EIP-712 domain
//	-v string   verifying contract of the EIP-712 domain
//	-m int      maximum grant duration, days
//
// Token validity is accepted as an integer number of hours.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-n", "-v", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidity.Hours()), "token_validity (in hours)")

	fs.Uint64Var(&config.ChainID, "n", config.ChainID, "chain id")
	fs.StringVar(&config.VerifyingContract, "v", config.VerifyingContract, "verifying contract")
	fs.Int64Var(&config.MaxGrantDays, "m", config.MaxGrantDays, "maximum grant duration (in days)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidity = time.Duration(*tokenValidity) * time.Hour
}
