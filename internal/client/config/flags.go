package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/mousetrap/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string      address and port of the service
//	-lock string   lock listener address
//	-host string   fallback host for lock links
//	-t duration    lock token validity
//	-b int         batch size
//	-region string AWS SES region
//	-from string   notification sender address
//	-r duration    reconnect delay
//	-log string    log level
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-lock", "-host", "-t", "-b", "-region", "-from", "-r", "-log"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.LockListenAddr, "lock", cfg.LockListenAddr, "lock listener address")
	fs.StringVar(&cfg.LockHost, "host", cfg.LockHost, "fallback host for lock links")
	fs.DurationVar(&cfg.TokenValidity, "t", cfg.TokenValidity, "lock token validity")
	fs.IntVar(&cfg.BatchSize, "b", cfg.BatchSize, "dots per batch")
	fs.StringVar(&cfg.SESRegion, "region", cfg.SESRegion, "AWS SES region")
	fs.StringVar(&cfg.SESFromAddress, "from", cfg.SESFromAddress, "notification sender address")
	fs.DurationVar(&cfg.ReconnectDelay, "r", cfg.ReconnectDelay, "reconnect delay")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
