package main

import "testing"

func TestConfigFlagValue(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absent", []string{"--once", "-v"}, ""},
		{"separate form", []string{"--config", "/etc/jaba.toml", "--once"}, "/etc/jaba.toml"},
		{"equals form", []string{"--config=/etc/jaba.toml"}, "/etc/jaba.toml"},
		{"trailing with no value", []string{"--config"}, ""},
		{"empty args", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := configFlagValue(tt.args)
			if got != tt.want {
				t.Errorf("configFlagValue(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
