package config

import (
	"flag"
	"os"
	"time"

	"github.com/ostrval/carpooling/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-r string   Redis address
//	-s string   token HMAC secret key
//	-t int      access token validity, minutes
//	-l int      login token validity, minutes
//	-e int      route cache TTL, minutes (0 disables expiry)
//	-u string   user store: "postgres" or "document"
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-s", "-t", "-l", "-e", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	loginTokenValidityDuration := fs.Int("l", int(config.LoginTokenValidityDuration.Minutes()), "login_token_validity_duration (in minutes)")
	routeCacheTTL := fs.Int("e", int(config.RouteCacheTTL.Minutes()), "route_cache_ttl (in minutes, 0 = no expiry)")

	fs.StringVar(&config.UserStore, "u", config.UserStore, "user store (postgres or document)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.LoginTokenValidityDuration = time.Duration(*loginTokenValidityDuration) * time.Minute
	config.RouteCacheTTL = time.Duration(*routeCacheTTL) * time.Minute
}
