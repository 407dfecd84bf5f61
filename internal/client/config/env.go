package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/mousetrap/internal/flagx"
)

// Environment variables read by parseEnv. AWS credentials are picked up by
// the AWS SDK itself from its usual variables.
const (
	EnvServerAddr     = "MOUSETRAP_SERVER_ADDR"
	EnvLockListenAddr = "MOUSETRAP_LOCK_ADDR"
	EnvLockHost       = "MOUSETRAP_LOCK_HOST"
	EnvSESRegion      = "MOUSETRAP_SES_REGION"
	EnvSESFromAddress = "MOUSETRAP_SES_FROM"
	EnvLogLevel       = "MOUSETRAP_LOG_LEVEL"
)

// parseEnv loads the -env file (if any) and copies the MOUSETRAP_* variables
// that are set into cfg. A missing or malformed file panics.
func parseEnv(cfg *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	}

	setString(&cfg.ServerEndpointAddr, EnvServerAddr)
	setString(&cfg.LockListenAddr, EnvLockListenAddr)
	setString(&cfg.LockHost, EnvLockHost)
	setString(&cfg.SESRegion, EnvSESRegion)
	setString(&cfg.SESFromAddress, EnvSESFromAddress)
	setString(&cfg.LogLevel, EnvLogLevel)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
