// Package config loads runtime configuration for an rcn node. It reads a
// JSON or TOML file and fills in defaults for anything left unset. Tests and
// development runs use defaults when the file is not present.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds configurable options for an rcn node.
type Config struct {
	KeyFile         string   `json:"key_file" toml:"key_file"`
	ListenAddrs     []string `json:"listen_addrs" toml:"listen_addrs"`
	BootstrapPeers  []string `json:"bootstrap_peers" toml:"bootstrap_peers"`
	MDNSServiceName string   `json:"mdns_service_name" toml:"mdns_service_name"`
	EnableMDNS      bool     `json:"enable_mdns" toml:"enable_mdns"`
	DashboardHost   string   `json:"dashboard_host" toml:"dashboard_host"`
	DashboardPort   int      `json:"dashboard_port" toml:"dashboard_port"`
	ValidateBlocks  bool     `json:"validate_blocks" toml:"validate_blocks"`
	ArchiveFile     string   `json:"archive_file" toml:"archive_file"`
	LogBuffer       int      `json:"log_buffer" toml:"log_buffer"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		KeyFile:         "rcn_key.pem",
		ListenAddrs:     []string{"/ip4/0.0.0.0/tcp/0"},
		MDNSServiceName: "riacoin-mdns",
		EnableMDNS:      true,
		DashboardHost:   "127.0.0.1",
		DashboardPort:   0,
		ValidateBlocks:  false,
		ArchiveFile:     "",
		LogBuffer:       200,
	}
}

// LoadConfig reads the file at path. Files ending in .toml are decoded as
// TOML, anything else as JSON. If the file does not exist or cannot be
// parsed, LoadConfig returns defaults (and no error) so that a node can run
// with minimal friction. Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	def := Default()

	// if no file path provided, return defaults
	if path == "" {
		return def, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		// file missing or unreadable -> use defaults
		return def, nil
	}

	c := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(b, c)
	} else {
		err = json.Unmarshal(b, c)
	}
	if err != nil {
		// parse error -> use defaults
		return def, nil
	}

	// explicit empty values fall back to defaults
	if c.KeyFile == "" {
		c.KeyFile = def.KeyFile
	}
	if len(c.ListenAddrs) == 0 {
		c.ListenAddrs = def.ListenAddrs
	}
	if c.MDNSServiceName == "" {
		c.MDNSServiceName = def.MDNSServiceName
	}
	if c.DashboardHost == "" {
		c.DashboardHost = def.DashboardHost
	}
	if c.DashboardPort < 0 {
		c.DashboardPort = def.DashboardPort
	}
	if c.LogBuffer <= 0 {
		c.LogBuffer = def.LogBuffer
	}

	return c, nil
}
