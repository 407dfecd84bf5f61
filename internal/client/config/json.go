package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mousetrap/internal/flagx"
	"github.com/dmitrijs2005/mousetrap/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Durations accept strings like "1h" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	LockListenAddr     string         `json:"lock_listen_addr"`
	LockHost           string         `json:"lock_host"`
	TokenValidity      timex.Duration `json:"token_validity"`
	BatchSize          int            `json:"batch_size"`
	SESRegion          string         `json:"ses_region"`
	SESFromAddress     string         `json:"ses_from_address"`
	ReconnectDelay     timex.Duration `json:"reconnect_delay"`
	LogLevel           string         `json:"log_level"`
}

// parseJson overlays cfg with the non-empty values of the JSON file named by
// -c or -config. Read or unmarshal errors panic.
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

	overlay(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	overlay(&cfg.LockListenAddr, jc.LockListenAddr)
	overlay(&cfg.LockHost, jc.LockHost)
	overlay(&cfg.TokenValidity, jc.TokenValidity.Duration)
	overlay(&cfg.BatchSize, jc.BatchSize)
	overlay(&cfg.SESRegion, jc.SESRegion)
	overlay(&cfg.SESFromAddress, jc.SESFromAddress)
	overlay(&cfg.ReconnectDelay, jc.ReconnectDelay.Duration)
	overlay(&cfg.LogLevel, jc.LogLevel)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
