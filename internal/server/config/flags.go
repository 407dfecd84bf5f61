package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/mousetrap/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     endpoint listener address (e.g., ":5000")
//	-d string     PostgreSQL DSN
//	-m int        max concurrent connections
//	-n int        samples needed before training
//	-l float      cost limit sent to endpoints
//	-k float      training cost threshold
//	-r duration   retrain interval
//	-i duration   connection idle timeout
//	-x string     metrics address ("" disables)
//	-u string     admin user name
//	-p string     admin password
//	-e string     admin email
//	-log string   log level
//
// Args are filtered with flagx.FilterArgs first so -c/-config and -env
// do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-n", "-l", "-k", "-r", "-i", "-x", "-u", "-p", "-e", "-log"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxConnections, "m", config.MaxConnections, "max concurrent connections")
	fs.IntVar(&config.MinSamples, "n", config.MinSamples, "samples needed before training")
	fs.Float64Var(&config.CostLimit, "l", config.CostLimit, "reconstruction cost limit")
	fs.Float64Var(&config.CostThreshold, "k", config.CostThreshold, "training cost threshold")
	fs.DurationVar(&config.RetrainInterval, "r", config.RetrainInterval, "retrain interval")
	fs.DurationVar(&config.IdleTimeout, "i", config.IdleTimeout, "connection idle timeout")
	fs.StringVar(&config.MetricsAddr, "x", config.MetricsAddr, "metrics address")
	fs.StringVar(&config.AdminUserName, "u", config.AdminUserName, "admin user name")
	fs.StringVar(&config.AdminPassword, "p", config.AdminPassword, "admin password")
	fs.StringVar(&config.AdminEmail, "e", config.AdminEmail, "admin email")
	fs.StringVar(&config.LogLevel, "log", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
