package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-s string   access token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes (0 = non-expiring)
//	-f string   Firebase project ID
//	-o string   comma-separated allowed CORS origins
//	-l string   log level
//	-b string   S3 bucket name
//	-e string   S3 base endpoint
//
// os.Args is filtered to these flags first so flags owned by other loaders
// (-c, -env-file, test flags) do not cause parse errors.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-f", "-o", "-l", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.FirebaseProjectID, "f", config.FirebaseProjectID, "Firebase project ID")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Durations are only overwritten when given, so sub-minute values from
	// earlier layers survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
	config.AllowedOrigins = splitList(*origins)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
