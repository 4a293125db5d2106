package main

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/snakeql/internal/config"
)

func TestFlagKeysExistInConfig(t *testing.T) {
	var tree map[string]any
	if err := yaml.Unmarshal(config.DefaultYAML(), &tree); err != nil {
		t.Fatalf("Unmarshal defaults failed: %v", err)
	}

	for flag, key := range flagKeys {
		node := any(tree)
		for _, part := range strings.Split(key, ".") {
			m, ok := node.(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = m[part]
		}
		if node == nil {
			t.Errorf("Flag --%s maps to %q, which is not in the default config", flag, key)
		}
	}
}

func TestRunCommandsHaveBoundFlags(t *testing.T) {
	for _, name := range []string{"rows", "cols", "epsilon", "games", "test-games", "max-idle", "listen"} {
		for _, cmd := range []string{"train", "watch", "serve"} {
			c, _, err := rootCmd.Find([]string{cmd})
			if err != nil {
				t.Fatalf("Find(%s) failed: %v", cmd, err)
			}
			if c.Flags().Lookup(name) == nil {
				t.Errorf("%s is missing --%s", cmd, name)
			}
		}
	}
}

func TestPortOf(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
	}{
		{":23234", "23234"},
		{"127.0.0.1:2222", "2222"},
		{"[::1]:22", "22"},
		{"localhost", "localhost"},
	}
	for _, tc := range tests {
		if got := portOf(tc.addr); got != tc.expected {
			t.Errorf("portOf(%q) = %q, expected %q", tc.addr, got, tc.expected)
		}
	}
}
