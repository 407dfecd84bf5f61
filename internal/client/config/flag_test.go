package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "10.0.0.1:5000", "-lock", ":9090", "-t", "30m", "-b", "50", "-from", "trap@example.com", "-c", "ignored.json"}, expectPanic: false,
			expected: &Config{ServerEndpointAddr: "10.0.0.1:5000", LockListenAddr: ":9090", TokenValidity: 30 * time.Minute, BatchSize: 50, SESFromAddress: "trap@example.com"}},
		{name: "Test2 incorrect token validity", args: []string{"cmd", "-t", "abc"}, expectPanic: true, expected: &Config{}},
		{name: "Test3 incorrect batch size", args: []string{"cmd", "-b", "x"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
