package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/mousetrap/internal/flagx"
)

// Environment variables read by parseEnv.
const (
	EnvEndpointAddr   = "MOUSETRAP_ENDPOINT_ADDR"
	EnvDatabaseDSN    = "MOUSETRAP_DATABASE_DSN"
	EnvMaxConnections = "MOUSETRAP_MAX_CONNECTIONS"
	EnvMetricsAddr    = "MOUSETRAP_METRICS_ADDR"
	EnvAdminUserName  = "MOUSETRAP_ADMIN_USERNAME"
	EnvAdminPassword  = "MOUSETRAP_ADMIN_PASSWORD"
	EnvAdminEmail     = "MOUSETRAP_ADMIN_EMAIL"
	EnvLogLevel       = "MOUSETRAP_LOG_LEVEL"
)

// parseEnv loads the file named by -env (if any) into the process
// environment and then copies the MOUSETRAP_* variables that are set into
// config. Variables already present in the environment win over the file.
// A missing or malformed file panics, like a bad JSON config.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	}

	setString(&config.EndpointAddr, EnvEndpointAddr)
	setString(&config.DatabaseDSN, EnvDatabaseDSN)
	setString(&config.MetricsAddr, EnvMetricsAddr)
	setString(&config.AdminUserName, EnvAdminUserName)
	setString(&config.AdminPassword, EnvAdminPassword)
	setString(&config.AdminEmail, EnvAdminEmail)
	setString(&config.LogLevel, EnvLogLevel)

	if v, ok := os.LookupEnv(EnvMaxConnections); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.MaxConnections = n
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
