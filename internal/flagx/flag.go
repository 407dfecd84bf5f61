// Package flagx holds small helpers that let several configuration layers
// parse their own subset of os.Args without tripping over each other.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only allowedFlags (and their values) from args.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -env .env
//  2. Flag and value combined with '=':      -config=mousetrap.json
//
// Parameters:
//
//	args:         the command-line arguments (usually os.Args[1:])
//	allowedFlags: flag names to keep (e.g. []string{"-c", "-config"})
//
// Returns:
//
//	A new slice with the allowed flags and their values. A token that
//	follows an allowed flag is taken as its value unless it starts with '-'.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// JsonConfigFlags returns the path given by -c / -config, or "" if absent.
func JsonConfigFlags() string {
	return stringFlag([]string{"c", "config"})
}

// EnvFileFlags returns the path given by -env, or "" if absent. The file is
// loaded with godotenv before JSON and flags are applied.
func EnvFileFlags() string {
	return stringFlag([]string{"env"})
}

func stringFlag(names []string) string {
	var value string

	dashed := make([]string, 0, len(names))
	for _, n := range names {
		dashed = append(dashed, "-"+n)
	}
	args := FilterArgs(os.Args[1:], dashed)

	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	for _, n := range names {
		fs.StringVar(&value, n, "", "path to file")
	}
	_ = fs.Parse(args)

	return value
}
