package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cykyes/textwire/frame"
	"github.com/cykyes/textwire/log"
	"github.com/cykyes/textwire/transport"
)

// Config is the CLI configuration file.
type Config struct {
	Transport   string        `yaml:"transport"`
	Terminator  string        `yaml:"terminator"`
	Encoding    string        `yaml:"encoding"`
	ChunkSize   int           `yaml:"chunk_size"`
	Verbose     bool          `yaml:"verbose"`
	LogLevel    string        `yaml:"log_level"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	KCP         KCPSettings   `yaml:"kcp"`
}

// KCPSettings tunes the kcp transport. Zero values keep the mode's defaults.
type KCPSettings struct {
	Mode   string `yaml:"mode"` // balanced or fast
	MTU    int    `yaml:"mtu"`
	SndWnd int    `yaml:"snd_wnd"`
	RcvWnd int    `yaml:"rcv_wnd"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Transport:   "tcp",
		Terminator:  "crlf",
		Encoding:    "us-ascii",
		ChunkSize:   256,
		LogLevel:    "warn",
		DialTimeout: 10 * time.Second,
		KCP:         KCPSettings{Mode: "balanced"},
	}
}

// DefaultConfigPath returns ~/.textwire/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".textwire", "config.yaml")
	}
	return filepath.Join(home, ".textwire", "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// FrameConfig builds the framing configuration. Traffic echo goes to traffic.
func (c *Config) FrameConfig(logger log.Logger, traffic io.Writer) (*frame.Config, error) {
	term, err := frame.ParseTerminator(c.Terminator)
	if err != nil {
		return nil, err
	}
	return frame.NewConfig(
		frame.WithTerminator(term),
		frame.WithEncodingName(c.Encoding),
		frame.WithChunkSize(c.ChunkSize),
		frame.WithVerbose(c.Verbose),
		frame.WithTraffic(traffic),
		frame.WithLogger(logger),
	)
}

// KCPConfig builds the kcp session parameters.
func (c *Config) KCPConfig() (*transport.KCPConfig, error) {
	var kc *transport.KCPConfig
	switch strings.ToLower(c.KCP.Mode) {
	case "", "balanced":
		kc = transport.DefaultKCPConfig()
	case "fast":
		kc = transport.FastKCPConfig()
	default:
		return nil, fmt.Errorf("unknown kcp mode %q", c.KCP.Mode)
	}
	if c.KCP.MTU > 0 {
		kc.MTU = c.KCP.MTU
	}
	if c.KCP.SndWnd > 0 {
		kc.SndWnd = c.KCP.SndWnd
	}
	if c.KCP.RcvWnd > 0 {
		kc.RcvWnd = c.KCP.RcvWnd
	}
	return kc, nil
}
