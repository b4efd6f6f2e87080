// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfg

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.HeadersPath = "headers.headers"
	cfg.BlocksPath = "blocks.blocks"
	cfg.LogPath = "node.log"
	return cfg
}

// TestValidateAcceptsDefaults pins the baseline config as accepted.
func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validate(validConfig()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// TestValidateRejectsFutureBeginTime pins spec.md §6.2's "begin_time in
// the future" rejection rule.
func TestValidateRejectsFutureBeginTime(t *testing.T) {
	cfg := validConfig()
	cfg.BeginTime = time.Now().Add(24 * time.Hour).Unix()
	if err := validate(cfg); err != ErrFutureBeginTime {
		t.Fatalf("validate = %v, want ErrFutureBeginTime", err)
	}
}

// TestValidateRejectsBadSuffixes pins the "file name not ending in the
// expected suffix" rejection rule for each persistence/log path.
func TestValidateRejectsBadSuffixes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"headers", func(c *Config) { c.HeadersPath = "headers.txt" }, ErrBadHeadersPath},
		{"blocks", func(c *Config) { c.BlocksPath = "blocks.txt" }, ErrBadBlocksPath},
		{"log", func(c *Config) { c.LogPath = "node.txt" }, ErrBadLogSuffix},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := validate(cfg); err != tc.want {
				t.Fatalf("validate = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestValidateRejectsMalformedLocalHost pins the "malformed local_host"
// rejection rule.
func TestValidateRejectsMalformedLocalHost(t *testing.T) {
	cfg := validConfig()
	cfg.LocalHost = "not-an-ip"
	if err := validate(cfg); err != ErrBadLocalHost {
		t.Fatalf("validate = %v, want ErrBadLocalHost", err)
	}

	cfg.LocalHost = "::1"
	if err := validate(cfg); err != ErrBadLocalHost {
		t.Fatalf("validate(IPv6) = %v, want ErrBadLocalHost", err)
	}
}

// TestLocalIPv4 verifies local_host decodes to its 4-byte form.
func TestLocalIPv4(t *testing.T) {
	cfg := validConfig()
	cfg.LocalHost = "10.0.0.1"
	got := cfg.LocalIPv4()
	want := [4]byte{10, 0, 0, 1}
	if got != want {
		t.Fatalf("LocalIPv4 = %v, want %v", got, want)
	}
}
