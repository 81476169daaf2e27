package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
server:
  control_socket: /tmp/wgagentd.sock
networks:
  office:
    interface: wg0
    private_key_path: /etc/wgagentd/office.key
    address: 10.10.0.2/24
    peers:
      - name: hq
        public_key: ` + "\"" + "3ZG3W1v3tZ6x3k8z2q1b4b4fQvEoP0T5Q2Q1Q1Q1Q1Q=" + "\"" + `
        endpoint: 198.51.100.1:51820
        allowed_ips:
          - 10.10.0.0/24
        persistent: true
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("HTTPAddr = %q, want default %q", cfg.Server.HTTPAddr, DefaultHTTPAddr)
	}
	network, ok := cfg.Network("office")
	if !ok {
		t.Fatalf("expected network 'office' to exist")
	}
	if network.MTU != DefaultMTU {
		t.Errorf("MTU = %d, want default %d", network.MTU, DefaultMTU)
	}
	if network.Peers[0].PersistentKeepaliveInt != DefaultKeepalive {
		t.Errorf("PersistentKeepaliveInt = %d, want default %d", network.Peers[0].PersistentKeepaliveInt, DefaultKeepalive)
	}
}

func TestLoadLeavesKeepaliveDisabledWithoutPersistentFlag(t *testing.T) {
	yaml := `
server:
  control_socket: /tmp/wgagentd.sock
networks:
  office:
    interface: wg0
    private_key_path: /etc/wgagentd/office.key
    address: 10.10.0.2/24
    peers:
      - name: hq
        public_key: "3ZG3W1v3tZ6x3k8z2q1b4b4fQvEoP0T5Q2Q1Q1Q1Q1Q="
        endpoint: 198.51.100.1:51820
        allowed_ips:
          - 10.10.0.0/24
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	network, ok := cfg.Network("office")
	if !ok {
		t.Fatalf("expected network 'office' to exist")
	}
	if got := network.Peers[0].PersistentKeepaliveInt; got != 0 {
		t.Errorf("PersistentKeepaliveInt = %d, want 0 (keepalive stays disabled when unset)", got)
	}
}

func TestLoadRejectsBadMTU(t *testing.T) {
	bad := strings.Replace(validYAML, "    interface: wg0\n", "    interface: wg0\n    mtu: 9000\n", 1)
	path := writeTemp(t, bad)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for out-of-range mtu")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateEndpointFormats(t *testing.T) {
	cases := []struct {
		endpoint string
		ok       bool
	}{
		{"198.51.100.1:51820", true},
		{"example.com:51820", true},
		{"198.51.100.1", false},
		{"198.51.100.1:not-a-port", false},
	}

	for _, tc := range cases {
		err := validateEndpoint(tc.endpoint)
		if (err == nil) != tc.ok {
			t.Errorf("validateEndpoint(%q) error = %v, want ok=%v", tc.endpoint, err, tc.ok)
		}
	}
}
