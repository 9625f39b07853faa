package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.json")} {
		c, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%q): %v", path, err)
		}
		if !reflect.DeepEqual(c, Default()) {
			t.Fatalf("LoadConfig(%q) = %+v, want defaults", path, c)
		}
	}
}

func TestUnparsableFileFallsBackToDefaults(t *testing.T) {
	for name, body := range map[string]string{
		"broken.json": "{not json",
		"broken.toml": "key_file = [",
	} {
		c, err := LoadConfig(writeFile(t, name, body))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !reflect.DeepEqual(c, Default()) {
			t.Fatalf("%s: got %+v, want defaults", name, c)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "rcn.json", `{
		"key_file": "/var/lib/rcn/key.pem",
		"bootstrap_peers": ["/ip4/192.0.2.1/tcp/4001/p2p/12D3KooWExample"],
		"enable_mdns": false,
		"dashboard_port": 8080,
		"validate_blocks": true,
		"mdns_service_name": ""
	}`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.KeyFile != "/var/lib/rcn/key.pem" {
		t.Errorf("key file = %s", c.KeyFile)
	}
	if len(c.BootstrapPeers) != 1 {
		t.Errorf("bootstrap peers = %v", c.BootstrapPeers)
	}
	if c.EnableMDNS {
		t.Error("enable_mdns=false ignored")
	}
	if c.DashboardPort != 8080 || !c.ValidateBlocks {
		t.Errorf("unexpected config %+v", c)
	}
	if c.DashboardHost != "127.0.0.1" {
		t.Errorf("dashboard host = %q, want loopback default", c.DashboardHost)
	}
	if c.MDNSServiceName != "riacoin-mdns" {
		t.Errorf("empty service name not defaulted: %q", c.MDNSServiceName)
	}
	if c.LogBuffer != 200 || len(c.ListenAddrs) != 1 {
		t.Errorf("missing keys not defaulted: %+v", c)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "rcn.toml", `
key_file = "node.pem"
listen_addrs = ["/ip4/127.0.0.1/tcp/4001", "/ip6/::1/tcp/4001"]
archive_file = "chain.db"
log_buffer = 50
dashboard_host = "0.0.0.0"
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.KeyFile != "node.pem" || c.ArchiveFile != "chain.db" || c.LogBuffer != 50 {
		t.Errorf("unexpected config %+v", c)
	}
	if c.DashboardHost != "0.0.0.0" {
		t.Errorf("dashboard host = %q", c.DashboardHost)
	}
	if len(c.ListenAddrs) != 2 {
		t.Errorf("listen addrs = %v", c.ListenAddrs)
	}
	if !c.EnableMDNS {
		t.Error("enable_mdns default lost")
	}
}
