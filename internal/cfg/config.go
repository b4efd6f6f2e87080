// Copyright (c) 2026 The exccspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cfg parses and validates the node's configuration, per
// spec.md §6.2, in the same two-layer shape dcrd's config.go uses:
// jessevdk/go-flags populates a struct from a config file plus
// command-line overrides.
package cfg

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// DefaultConfigFilename is this node's config file, the Go-idiom analogue
// of the Rust original's nodo.conf.
const DefaultConfigFilename = "exccspv.conf"

// Errors returned by Load/validate, naming the rejection rules of
// spec.md §6.2.
var (
	ErrFutureBeginTime = errors.New("cfg: begin_time is in the future")
	ErrBadHeadersPath  = errors.New("cfg: headers_path must end in .headers")
	ErrBadBlocksPath   = errors.New("cfg: blocks_path must end in .blocks")
	ErrBadLocalHost    = errors.New("cfg: local_host is not a valid IPv4 address")
	ErrBadLogSuffix    = errors.New("cfg: log_path must end in .log")
)

// Config is the recognized option set of spec.md §6.2.
type Config struct {
	Version     int    `long:"version" description:"protocol version integer sent in version messages" default:"70015"`
	DNSPort     int    `long:"dns_port" description:"port used with the seed host" default:"18333"`
	LocalHost   string `long:"local_host" description:"IPv4 advertised in version messages" default:"127.0.0.1"`
	LocalPort   int    `long:"local_port" description:"bind port for inbound peers" default:"18333"`
	LogPath     string `long:"log_path" description:"append path for the log sink" default:"exccspv.log"`
	BeginTime   int64  `long:"begin_time" description:"UNIX timestamp; blocks older than this are not downloaded"`
	HeadersPath string `long:"headers_path" description:"headers persistence file" default:"headers.headers"`
	BlocksPath  string `long:"blocks_path" description:"blocks persistence file" default:"blocks.blocks"`
	IPv6Enabled bool   `long:"ipv6_enabled" description:"whether DNS-resolved IPv6 peers are used"`

	ConfigFile string `short:"C" long:"configfile" description:"path to a configuration file" no-ini:"true"`
}

// Load parses command-line arguments, layering them over any config
// file found at the default location (or the one named with
// -C/--configfile), and validates the result, per spec.md §6.2's
// "invalid values reject" rule.
func Load(args []string) (*Config, error) {
	cfg := defaultConfig()

	// A first, lenient pass just to learn -C/--configfile, mirroring
	// dcrd's config.go two-pass parse.
	preParser := flags.NewParser(cfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	configPath := cfg.ConfigFile
	if configPath == "" {
		configPath = DefaultConfigFilename
	}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := os.Stat(configPath); err == nil {
		if err := flags.NewIniParser(parser).ParseFile(configPath); err != nil {
			return nil, err
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Version:     70015,
		DNSPort:     18333,
		LocalHost:   "127.0.0.1",
		LocalPort:   18333,
		LogPath:     "exccspv.log",
		HeadersPath: "headers.headers",
		BlocksPath:  "blocks.blocks",
	}
}

// validate enforces spec.md §6.2's reject rules: begin_time in the
// future, a persistence path without its expected suffix, or a malformed
// local_host.
func validate(cfg *Config) error {
	if cfg.BeginTime > time.Now().Unix() {
		return ErrFutureBeginTime
	}
	if !strings.HasSuffix(cfg.HeadersPath, ".headers") {
		return ErrBadHeadersPath
	}
	if !strings.HasSuffix(cfg.BlocksPath, ".blocks") {
		return ErrBadBlocksPath
	}
	if !strings.HasSuffix(cfg.LogPath, ".log") {
		return ErrBadLogSuffix
	}
	ip := net.ParseIP(cfg.LocalHost)
	if ip == nil || ip.To4() == nil {
		return ErrBadLocalHost
	}
	return nil
}

// LocalIPv4 returns local_host decoded into its 4-byte form, for
// wire.NetAddress construction.
func (c *Config) LocalIPv4() [4]byte {
	var out [4]byte
	copy(out[:], net.ParseIP(c.LocalHost).To4())
	return out
}

// AbsHeadersPath and AbsBlocksPath resolve the configured persistence
// paths relative to the current working directory, matching the
// original's path handling.
func (c *Config) AbsHeadersPath() string { return abs(c.HeadersPath) }
func (c *Config) AbsBlocksPath() string  { return abs(c.BlocksPath) }

func abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	return filepath.Join(wd, p)
}
