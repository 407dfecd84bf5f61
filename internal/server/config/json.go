package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mousetrap/internal/flagx"
	"github.com/dmitrijs2005/mousetrap/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// Fields left out of the file keep their current values.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	MaxConnections   int            `json:"max_connections"`
	MinSamples       int            `json:"min_samples"`
	CostLimit        float64        `json:"cost_limit"`
	CostThreshold    float64        `json:"cost_threshold"`
	MaxEpochs        int            `json:"max_epochs"`
	RetrainInterval  timex.Duration `json:"retrain_interval"`
	TickInterval     timex.Duration `json:"tick_interval"`
	DiscoverInterval timex.Duration `json:"discover_interval"`
	PollInterval     timex.Duration `json:"poll_interval"`
	IdleTimeout      timex.Duration `json:"idle_timeout"`
	MetricsAddr      string         `json:"metrics_addr"`
	AdminUserName    string         `json:"admin_username"`
	AdminPassword    string         `json:"admin_password"`
	AdminEmail       string         `json:"admin_email"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file given by -c or
// -config into config. Without the flag nothing is loaded. An unreadable or
// invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddr, c.EndpointAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.MaxConnections, c.MaxConnections)
	overlay(&config.MinSamples, c.MinSamples)
	overlay(&config.CostLimit, c.CostLimit)
	overlay(&config.CostThreshold, c.CostThreshold)
	overlay(&config.MaxEpochs, c.MaxEpochs)
	overlay(&config.RetrainInterval, c.RetrainInterval.Duration)
	overlay(&config.TickInterval, c.TickInterval.Duration)
	overlay(&config.DiscoverInterval, c.DiscoverInterval.Duration)
	overlay(&config.PollInterval, c.PollInterval.Duration)
	overlay(&config.IdleTimeout, c.IdleTimeout.Duration)
	overlay(&config.MetricsAddr, c.MetricsAddr)
	overlay(&config.AdminUserName, c.AdminUserName)
	overlay(&config.AdminPassword, c.AdminPassword)
	overlay(&config.AdminEmail, c.AdminEmail)
	overlay(&config.LogLevel, c.LogLevel)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
