// Package config loads runtime configuration for the MouseTrap endpoint agent.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional .env file selected with -env, plus MOUSETRAP_* variables.
//  3. An optional JSON file selected with -c or -config.
//  4. Command-line flags.
package config

import "time"

// Config holds runtime settings for the endpoint agent.
//
// Fields:
//   - ServerEndpointAddr: host:port of the MouseTrap service.
//   - LockListenAddr: bind address of the lock listener.
//   - LockHost: host placed in lock URLs when no reachable address is found.
//   - TokenValidity: how long an emailed lock link works.
//   - BatchSize: dots scored per monitoring round and uploaded per learn round.
//   - SESRegion / SESFromAddress: AWS SES settings; an empty sender address
//     disables email and notifications are only logged.
//   - ReconnectDelay: pause between connection attempts.
type Config struct {
	ServerEndpointAddr string
	LockListenAddr     string
	LockHost           string
	TokenValidity      time.Duration
	BatchSize          int
	SESRegion          string
	SESFromAddress     string
	ReconnectDelay     time.Duration
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:5000"
	c.LockListenAddr = ":8080"
	c.LockHost = "localhost"
	c.TokenValidity = time.Hour
	c.BatchSize = 100
	c.SESRegion = "us-east-1"
	c.SESFromAddress = ""
	c.ReconnectDelay = 5 * time.Second
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
